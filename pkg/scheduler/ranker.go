package scheduler

import (
	"sort"
	"time"

	"github.com/arnavshah/duty-roster-go/pkg/models"
)

const (
	// PenaltyRecentDays is the window in which a recent duty lowers the score
	PenaltyRecentDays = 14
	// HardBlockScore is assigned to candidates that cannot take the slot
	HardBlockScore = -10000
	// DefaultTopN is the ranking length used by reports and reconciliation
	DefaultTopN = 5

	neverServedDays       = 365
	neverServedAgeMinutes = int64(1_000_000_000_000)
)

// Hard block reasons, checked in this order
const (
	ReasonUnavailable  = "unavailable for this shift"
	ReasonSameDay      = "already scheduled that day"
	ReasonMonthlyLimit = "monthly limit reached"
)

// Candidate is one member scored for one service
type Candidate struct {
	MemberID       uint    `json:"member_id" yaml:"member_id"`
	Name           string  `json:"name" yaml:"name"`
	Score          int     `json:"score" yaml:"score"`
	DaysSinceLast  int     `json:"days_since_last" yaml:"days_since_last"`
	RecentPenalty  int     `json:"recent_penalty" yaml:"recent_penalty"`
	AgeMinutes     int64   `json:"age_minutes" yaml:"age_minutes"`
	Blocked        bool    `json:"blocked" yaml:"blocked"`
	Reason         string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	LastAssignment *string `json:"last_assignment" yaml:"last_assignment"`
}

// Score turns days since the last duty into a ranking score.
// Inside the penalty window the gap is counted against the member twice.
func Score(daysSince int) int {
	if daysSince >= 0 && daysSince < PenaltyRecentDays {
		return daysSince - (PenaltyRecentDays - daysSince)
	}
	return daysSince
}

func recentPenalty(daysSince int) int {
	if daysSince >= 0 && daysSince < PenaltyRecentDays {
		return PenaltyRecentDays - daysSince
	}
	return 0
}

// Rank scores every active member for svc. It returns at most limit candidates,
// eligible ones first, and the best eligible member when there is one.
func (s *State) Rank(svc models.Service, limit int) ([]Candidate, uint, bool) {
	var eligible, blocked []Candidate
	for _, m := range s.members {
		c := s.score(svc, m)
		if c.Blocked {
			blocked = append(blocked, c)
		} else {
			eligible = append(eligible, c)
		}
	}

	// members arrive ordered by name, so equal keys stay in name order
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].AgeMinutes > eligible[j].AgeMinutes
	})
	sort.SliceStable(blocked, func(i, j int) bool {
		if blocked[i].Score != blocked[j].Score {
			return blocked[i].Score > blocked[j].Score
		}
		if blocked[i].AgeMinutes != blocked[j].AgeMinutes {
			return blocked[i].AgeMinutes > blocked[j].AgeMinutes
		}
		return blocked[i].Name < blocked[j].Name
	})

	ranked := append(eligible, blocked...)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(eligible) == 0 {
		return ranked, 0, false
	}
	return ranked, eligible[0].MemberID, true
}

func (s *State) score(svc models.Service, m models.Member) Candidate {
	c := Candidate{MemberID: m.ID, Name: m.Name}

	c.Reason = s.block(svc, m)
	c.Blocked = c.Reason != ""

	last, served := s.lastAssignment[m.ID]
	if served {
		c.DaysSinceLast = daysBetween(last, svc.StartsAt)
		c.AgeMinutes = int64(svc.StartsAt.Sub(last) / time.Minute)
		iso := last.UTC().Format("2006-01-02T15:04:05")
		c.LastAssignment = &iso
	} else {
		c.DaysSinceLast = neverServedDays
		c.AgeMinutes = neverServedAgeMinutes
	}

	if c.Blocked {
		c.Score = HardBlockScore
	} else {
		c.Score = Score(c.DaysSinceLast)
		c.RecentPenalty = recentPenalty(c.DaysSinceLast)
	}
	return c
}

func (s *State) block(svc models.Service, m models.Member) string {
	if !s.available(m.ID, models.Weekday(svc.StartsAt), svc.Shift()) {
		return ReasonUnavailable
	}
	if s.OnDay(svc.Date(), m.ID) {
		return ReasonSameDay
	}
	if s.monthCount[m.ID] >= s.limits[m.ID] {
		return ReasonMonthlyLimit
	}
	return ""
}

// daysBetween counts calendar days from last to current, never negative
func daysBetween(last, current time.Time) int {
	last, current = last.UTC(), current.UTC()
	from := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
