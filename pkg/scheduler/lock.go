package scheduler

import "github.com/arnavshah/duty-roster-go/pkg/models"

// LockKind says why a service's member is pinned
type LockKind int

const (
	LockNone LockKind = iota
	LockConfirmed
	LockReplaced
)

func (k LockKind) String() string {
	switch k {
	case LockConfirmed:
		return "confirmed"
	case LockReplaced:
		return "replaced"
	default:
		return "none"
	}
}

// Status is the assignment status that carries the lock
func (k LockKind) Status() models.AssignmentStatus {
	switch k {
	case LockConfirmed:
		return models.StatusConfirmed
	case LockReplaced:
		return models.StatusReplaced
	default:
		return ""
	}
}

// Lock pins a service to a member. The zero value is an open service.
type Lock struct {
	Kind     LockKind
	MemberID uint
}

// LockOf derives the lock from a service's preloaded rows: a confirmed row wins over a replaced one
func LockOf(svc models.Service) Lock {
	if ids := svc.MemberIDsWithStatus(models.StatusConfirmed); len(ids) > 0 {
		return Lock{Kind: LockConfirmed, MemberID: ids[0]}
	}
	if ids := svc.MemberIDsWithStatus(models.StatusReplaced); len(ids) > 0 {
		return Lock{Kind: LockReplaced, MemberID: ids[0]}
	}
	return Lock{}
}

// Effective drops replaced locks when the caller asked to recompute them
func (l Lock) Effective(overrideReplaced bool) Lock {
	if l.Kind == LockReplaced && overrideReplaced {
		return Lock{}
	}
	return l
}

