package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
)

// ErrInvalidMonth is returned for a year/month pair outside the calendar
var ErrInvalidMonth = errors.New("invalid year or month")

// Engine suggests, reconciles and ranks members for a month's services
type Engine struct {
	repo repository.Repository
}

// New creates an engine reading and writing through repo
func New(repo repository.Repository) *Engine {
	return &Engine{repo: repo}
}

// GenerateResult summarises a generation pass
type GenerateResult struct {
	MonthCreated       bool `json:"month_created" yaml:"month_created"`
	SuggestionsCreated int  `json:"suggestions_created" yaml:"suggestions_created"`
}

// ValidateMonth rejects years outside 1..9999 and months outside 1..12
func ValidateMonth(year, month int) error {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return fmt.Errorf("%w: %d-%02d", ErrInvalidMonth, year, month)
	}
	return nil
}

// Generate fills the month's open services with one suggestion each.
// Confirmed services are folded into the simulation and skipped, as are services
// already carrying a suggestion.
func (e *Engine) Generate(ctx context.Context, year, month int, actor string) (GenerateResult, error) {
	var res GenerateResult
	if err := ValidateMonth(year, month); err != nil {
		return res, err
	}

	err := e.repo.Transaction(ctx, func(tx repository.Repository) error {
		created, err := tx.EnsureScheduleMonth(ctx, year, month, actor)
		if err != nil {
			return err
		}
		res.MonthCreated = created

		services, err := tx.MonthServices(ctx, year, month)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			return nil
		}

		state, err := newState(ctx, tx, year, month, services)
		if err != nil {
			return err
		}

		var plan []models.Assignment
		for _, svc := range services {
			state.Advance(svc.StartsAt)

			if confirmed := svc.MemberIDsWithStatus(models.StatusConfirmed); len(confirmed) > 0 {
				for _, id := range confirmed {
					state.Record(id, svc.StartsAt)
				}
				continue
			}
			if suggested := svc.MemberIDsWithStatus(models.StatusSuggested); len(suggested) > 0 {
				state.Record(suggested[0], svc.StartsAt)
				continue
			}

			_, best, ok := state.Rank(svc, 1)
			if !ok {
				continue
			}
			state.Record(best, svc.StartsAt)
			plan = append(plan, models.Assignment{
				ServiceID: svc.ID,
				MemberID:  best,
				Status:    models.StatusSuggested,
				CreatedBy: actorRef(actor),
			})
		}

		if _, err := tx.CreateAssignments(ctx, plan); err != nil {
			return err
		}
		res.SuggestionsCreated = len(plan)
		return nil
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate %d-%02d: %w", year, month, err)
	}
	return res, nil
}

// Rank reports the top candidates of every service without persisting anything.
// Confirmed services get an empty ranking; later services see the simulated outcome of earlier ones.
func (e *Engine) Rank(ctx context.Context, year, month, topN int) (map[uint][]Candidate, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	services, err := e.repo.MonthServices(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("rank %d-%02d: %w", year, month, err)
	}
	results := make(map[uint][]Candidate, len(services))
	if len(services) == 0 {
		return results, nil
	}

	state, err := newState(ctx, e.repo, year, month, services)
	if err != nil {
		return nil, fmt.Errorf("rank %d-%02d: %w", year, month, err)
	}

	for _, svc := range services {
		state.Advance(svc.StartsAt)
		lock := LockOf(svc)

		if lock.Kind == LockConfirmed {
			state.Record(lock.MemberID, svc.StartsAt)
			results[svc.ID] = []Candidate{}
			continue
		}

		ranked, best, ok := state.Rank(svc, topN)
		results[svc.ID] = ranked

		switch {
		case lock.Kind == LockReplaced:
			state.Record(lock.MemberID, svc.StartsAt)
		case ok:
			state.Record(best, svc.StartsAt)
		}
	}
	return results, nil
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
