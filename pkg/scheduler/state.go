package scheduler

import (
	"context"
	"time"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
)

// State is the in-memory projection of a month walked in chronological order.
// It is built per call and never persisted.
type State struct {
	members      []models.Member
	availability map[uint][]models.Availability
	limits       map[uint]int

	lastAssignment map[uint]time.Time
	monthCount     map[uint]int
	dayBlock       map[models.Day]map[uint]struct{}

	// confirmed duties of the month not yet folded into lastAssignment
	timeline []models.ConfirmedDuty
	cursor   int
}

func newState(ctx context.Context, repo repository.Repository, year, month int, services []models.Service) (*State, error) {
	members, err := repo.ActiveMembers(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(members))
	limits := make(map[uint]int, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
		limits[m.ID] = repo.MonthlyLimit(m)
	}

	availability, err := repo.ActiveAvailability(ctx, ids)
	if err != nil {
		return nil, err
	}

	s := &State{
		members:        members,
		availability:   availability,
		limits:         limits,
		lastAssignment: make(map[uint]time.Time),
	}

	if len(services) > 0 {
		baseline, err := repo.BaselineLastConfirmed(ctx, services[0].StartsAt)
		if err != nil {
			return nil, err
		}
		for id, last := range baseline {
			if last != nil {
				s.lastAssignment[id] = *last
			}
		}
	}

	if s.monthCount, err = repo.MonthConfirmedCounts(ctx, year, month); err != nil {
		return nil, err
	}
	if s.dayBlock, err = repo.MonthDayBlock(ctx, year, month); err != nil {
		return nil, err
	}
	if s.timeline, err = repo.MonthConfirmedTimeline(ctx, year, month); err != nil {
		return nil, err
	}
	if s.monthCount == nil {
		s.monthCount = make(map[uint]int)
	}
	if s.dayBlock == nil {
		s.dayBlock = make(map[models.Day]map[uint]struct{})
	}
	return s, nil
}

// Advance folds every pending confirmed duty strictly earlier than current.
// The cursor only moves forward.
func (s *State) Advance(current time.Time) {
	for s.cursor < len(s.timeline) && s.timeline[s.cursor].At.Before(current) {
		duty := s.timeline[s.cursor]
		if prev, ok := s.lastAssignment[duty.MemberID]; !ok || duty.At.After(prev) {
			s.lastAssignment[duty.MemberID] = duty.At
		}
		s.cursor++
	}
}

// Record places a member on a service: blocks the day, counts the duty and moves their last assignment to at
func (s *State) Record(memberID uint, at time.Time) {
	day := models.DayOf(at)
	if s.dayBlock[day] == nil {
		s.dayBlock[day] = make(map[uint]struct{})
	}
	s.dayBlock[day][memberID] = struct{}{}
	s.monthCount[memberID]++
	s.lastAssignment[memberID] = at
}

// LastAssignment returns the member's latest known duty instant
func (s *State) LastAssignment(memberID uint) (time.Time, bool) {
	at, ok := s.lastAssignment[memberID]
	return at, ok
}

func (s *State) MonthCount(memberID uint) int {
	return s.monthCount[memberID]
}

// OnDay reports whether the member is already placed on that date
func (s *State) OnDay(day models.Day, memberID uint) bool {
	_, ok := s.dayBlock[day][memberID]
	return ok
}

// Folded is how many timeline entries Advance has consumed
func (s *State) Folded() int {
	return s.cursor
}

func (s *State) available(memberID uint, weekday int, shift models.Shift) bool {
	rows := s.availability[memberID]
	if len(rows) == 0 {
		return true
	}
	for _, a := range rows {
		if a.Weekday == weekday && a.Shift == shift {
			return true
		}
	}
	return false
}
