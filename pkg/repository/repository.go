package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/arnavshah/duty-roster-go/pkg/models"
)

// ErrNotFound is returned when a looked-up row does not exist
var ErrNotFound = errors.New("record not found")

// Repository is everything the suggestion engine and its callers read and write.
// Month-scoped queries cover regular services only unless extra services are enabled.
type Repository interface {
	// ActiveMembers returns active members ordered by name, then id
	ActiveMembers(ctx context.Context) ([]models.Member, error)
	// ActiveAvailability returns the active availability rows of the given members, keyed by member
	ActiveAvailability(ctx context.Context, memberIDs []uint) (map[uint][]models.Availability, error)
	// MonthlyLimit resolves a member's cap, falling back to the configured default
	MonthlyLimit(member models.Member) int

	// MonthServices returns the month's services ordered by start, with assignments preloaded in id order
	MonthServices(ctx context.Context, year, month int) ([]models.Service, error)
	MemberMonthConfirmed(ctx context.Context, memberID uint, year, month int) ([]models.Assignment, error)
	MonthConfirmedCounts(ctx context.Context, year, month int) (map[uint]int, error)
	MonthDayBlock(ctx context.Context, year, month int) (map[models.Day]map[uint]struct{}, error)
	// BaselineLastConfirmed maps every active member to their latest confirmed duty strictly before the instant
	BaselineLastConfirmed(ctx context.Context, before time.Time) (map[uint]*time.Time, error)
	MonthConfirmedTimeline(ctx context.Context, year, month int) ([]models.ConfirmedDuty, error)

	// LockAssignments reads the rows of the given services for update, skipping rows held by other writers
	LockAssignments(ctx context.Context, serviceIDs []uint) ([]models.Assignment, error)
	// CreateAssignment inserts a row, reporting false when the (service, member) pair already exists
	CreateAssignment(ctx context.Context, a *models.Assignment) (bool, error)
	// CreateAssignments inserts rows in bulk, silently skipping duplicates
	CreateAssignments(ctx context.Context, rows []models.Assignment) (int, error)
	UpdateAssignment(ctx context.Context, a *models.Assignment) error
	// EnsureScheduleMonth creates the month marker if absent and reports whether it did
	EnsureScheduleMonth(ctx context.Context, year, month int, actor string) (bool, error)

	GetAssignment(ctx context.Context, id uint) (*models.Assignment, error)
	GetService(ctx context.Context, id uint) (*models.Service, error)
	GetMember(ctx context.Context, id uint) (*models.Member, error)

	// Transaction runs fn against a repository bound to a single database transaction
	Transaction(ctx context.Context, fn func(Repository) error) error
}

// AssignmentObserver is notified after a single assignment row is created or updated,
// inside the same transaction. before is nil on create.
type AssignmentObserver interface {
	AssignmentSaved(ctx context.Context, tx *gorm.DB, before, after *models.Assignment) error
}

// MonthRange returns the [start, end) UTC bounds of a calendar month
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
