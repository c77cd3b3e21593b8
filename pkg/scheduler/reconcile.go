package scheduler

import (
	"context"
	"fmt"

	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
)

// Reconcile recomputes suggestions for the services after pivot (the whole month when pivot is 0)
// and rewrites stored rows with as little churn as possible. It returns the ids of services whose
// rows changed, in service order.
//
// Confirmed services always keep their member. Replaced services keep theirs only on a whole-month
// pass; with a pivot they are recomputed.
func (e *Engine) Reconcile(ctx context.Context, year, month int, actor string, pivot uint) ([]uint, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}

	changed := []uint{}
	err := e.repo.Transaction(ctx, func(tx repository.Repository) error {
		services, err := tx.MonthServices(ctx, year, month)
		if err != nil {
			return err
		}
		if len(services) == 0 {
			return nil
		}

		start := startIndex(services, pivot)
		if start >= len(services) {
			return nil
		}
		overrideReplaced := pivot != 0

		state, err := newState(ctx, tx, year, month, services)
		if err != nil {
			return err
		}

		// services before the start are replayed as they stand, every row whatever its status
		for _, svc := range services[:start] {
			state.Advance(svc.StartsAt)
			for _, a := range svc.Assignments {
				state.Record(a.MemberID, svc.StartsAt)
			}
		}

		locks := make(map[uint]Lock, len(services)-start)
		picks := make(map[uint]uint, len(services)-start)
		for _, svc := range services[start:] {
			state.Advance(svc.StartsAt)

			lock := LockOf(svc).Effective(overrideReplaced)
			locks[svc.ID] = lock
			if lock.Kind != LockNone {
				state.Record(lock.MemberID, svc.StartsAt)
				continue
			}

			_, best, ok := state.Rank(svc, DefaultTopN)
			if !ok {
				continue
			}
			state.Record(best, svc.StartsAt)
			picks[svc.ID] = best
		}

		changed, err = applyChanges(ctx, tx, services[start:], locks, picks, actor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %d-%02d: %w", year, month, err)
	}
	return changed, nil
}

// startIndex is the first service to recompute: the one after the pivot, or 0 when the pivot is absent
func startIndex(services []models.Service, pivot uint) int {
	if pivot == 0 {
		return 0
	}
	for i, svc := range services {
		if svc.ID == pivot {
			return i + 1
		}
	}
	return 0
}

func applyChanges(ctx context.Context, tx repository.Repository, services []models.Service,
	locks map[uint]Lock, picks map[uint]uint, actor string) ([]uint, error) {

	ids := make([]uint, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}
	rows, err := tx.LockAssignments(ctx, ids)
	if err != nil {
		return nil, err
	}
	byService := make(map[uint][]*models.Assignment, len(services))
	for i := range rows {
		byService[rows[i].ServiceID] = append(byService[rows[i].ServiceID], &rows[i])
	}

	changed := []uint{}
	for _, svc := range services {
		s := &slot{ctx: ctx, tx: tx, serviceID: svc.ID, rows: byService[svc.ID], actor: actorRef(actor)}

		if lock := locks[svc.ID]; lock.Kind != LockNone {
			err = s.applyLocked(lock)
		} else {
			member, ok := picks[svc.ID]
			err = s.applyOpen(member, ok)
		}
		if err != nil {
			return nil, fmt.Errorf("service %d: %w", svc.ID, err)
		}
		if s.changed {
			changed = append(changed, svc.ID)
		}
	}
	return changed, nil
}

// slot holds one service's stored rows, in id order, while they are rewritten
type slot struct {
	ctx       context.Context
	tx        repository.Repository
	serviceID uint
	rows      []*models.Assignment
	actor     *string
	changed   bool
}

func (s *slot) first(match func(*models.Assignment) bool) *models.Assignment {
	for _, a := range s.rows {
		if match(a) {
			return a
		}
	}
	return nil
}

func withStatus(status models.AssignmentStatus) func(*models.Assignment) bool {
	return func(a *models.Assignment) bool { return a.Status == status }
}

func withStatusAndMember(status models.AssignmentStatus, memberID uint) func(*models.Assignment) bool {
	return func(a *models.Assignment) bool { return a.Status == status && a.MemberID == memberID }
}

func reusable(a *models.Assignment) bool {
	return a.Status == models.StatusSuggested || a.Status == models.StatusReplaced
}

func (s *slot) save(a *models.Assignment) error {
	s.changed = true
	return s.tx.UpdateAssignment(s.ctx, a)
}

func (s *slot) insert(memberID uint, status models.AssignmentStatus) error {
	a := &models.Assignment{ServiceID: s.serviceID, MemberID: memberID, Status: status, CreatedBy: s.actor}
	created, err := s.tx.CreateAssignment(s.ctx, a)
	if err != nil {
		return err
	}
	if created {
		s.changed = true
		s.rows = append(s.rows, a)
	}
	return nil
}

func (s *slot) attribute(a *models.Assignment) {
	if s.actor != nil {
		a.CreatedBy = s.actor
	}
}

// demoteSuggested turns every suggested row except keep into a replaced one
func (s *slot) demoteSuggested(keep *models.Assignment) error {
	for _, a := range s.rows {
		if a == keep || a.Status != models.StatusSuggested {
			continue
		}
		a.Status = models.StatusReplaced
		if err := s.save(a); err != nil {
			return err
		}
	}
	return nil
}

// applyLocked makes exactly one row carry the lock, reusing rows before inserting,
// and leaves no suggestion behind
func (s *slot) applyLocked(lock Lock) error {
	status := lock.Kind.Status()

	if target := s.first(withStatus(status)); target != nil {
		if target.MemberID != lock.MemberID {
			target.MemberID = lock.MemberID
			if err := s.save(target); err != nil {
				return err
			}
		}
		return s.demoteSuggested(nil)
	}

	reuse := s.first(func(a *models.Assignment) bool { return reusable(a) && a.MemberID == lock.MemberID })
	if reuse == nil {
		reuse = s.first(reusable)
	}
	if reuse != nil {
		reuse.MemberID = lock.MemberID
		reuse.Status = status
		s.attribute(reuse)
		if err := s.save(reuse); err != nil {
			return err
		}
	} else if err := s.insert(lock.MemberID, status); err != nil {
		return err
	}
	return s.demoteSuggested(nil)
}

// applyOpen points the service's single suggestion at memberID, or clears it when ok is false
func (s *slot) applyOpen(memberID uint, ok bool) error {
	if !ok {
		return s.demoteSuggested(nil)
	}

	if keep := s.first(withStatusAndMember(models.StatusSuggested, memberID)); keep != nil {
		return s.demoteSuggested(keep)
	}

	if back := s.first(withStatusAndMember(models.StatusReplaced, memberID)); back != nil {
		back.Status = models.StatusSuggested
		s.attribute(back)
		if err := s.save(back); err != nil {
			return err
		}
		return s.demoteSuggested(back)
	}

	if current := s.first(withStatus(models.StatusSuggested)); current != nil {
		current.MemberID = memberID
		s.attribute(current)
		if err := s.save(current); err != nil {
			return err
		}
		return s.demoteSuggested(current)
	}

	if old := s.first(withStatus(models.StatusReplaced)); old != nil {
		old.MemberID = memberID
		old.Status = models.StatusSuggested
		s.attribute(old)
		return s.save(old)
	}

	return s.insert(memberID, models.StatusSuggested)
}
