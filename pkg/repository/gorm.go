package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/duty-roster-go/pkg/models"
)

// Options tune which services the month queries see and how caps resolve
type Options struct {
	IncludeExtra        bool
	DefaultMonthlyLimit int
	Observer            AssignmentObserver
}

// GormRepository implements Repository on top of gorm
type GormRepository struct {
	db   *gorm.DB
	opts Options
}

// New returns a gorm-backed repository
func New(db *gorm.DB, opts Options) *GormRepository {
	if opts.DefaultMonthlyLimit < 1 {
		opts.DefaultMonthlyLimit = 2
	}
	return &GormRepository{db: db, opts: opts}
}

// DB exposes the underlying handle for callers that manage their own tables
func (r *GormRepository) DB() *gorm.DB {
	return r.db
}

func (r *GormRepository) ActiveMembers(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name").Order("id").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	return members, nil
}

func (r *GormRepository) ActiveAvailability(ctx context.Context, memberIDs []uint) (map[uint][]models.Availability, error) {
	out := make(map[uint][]models.Availability, len(memberIDs))
	if len(memberIDs) == 0 {
		return out, nil
	}
	var rows []models.Availability
	if err := r.db.WithContext(ctx).
		Where("active = ? AND member_id IN ?", true, memberIDs).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	for _, a := range rows {
		out[a.MemberID] = append(out[a.MemberID], a)
	}
	return out, nil
}

func (r *GormRepository) MonthlyLimit(member models.Member) int {
	if member.MonthlyLimit > 0 {
		return member.MonthlyLimit
	}
	return r.opts.DefaultMonthlyLimit
}

func (r *GormRepository) MonthServices(ctx context.Context, year, month int) ([]models.Service, error) {
	start, end := MonthRange(year, month)
	q := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("starts_at >= ? AND starts_at < ?", start, end)
	if !r.opts.IncludeExtra {
		q = q.Where("type = ?", models.ServiceRegular)
	}

	var services []models.Service
	if err := q.Order("starts_at").Order("id").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("list month services: %w", err)
	}
	return services, nil
}

func (r *GormRepository) MemberMonthConfirmed(ctx context.Context, memberID uint, year, month int) ([]models.Assignment, error) {
	start, end := MonthRange(year, month)
	q := r.db.WithContext(ctx).
		Joins("JOIN services ON services.id = assignments.service_id").
		Preload("Service").
		Where("assignments.member_id = ? AND assignments.status = ?", memberID, models.StatusConfirmed).
		Where("services.starts_at >= ? AND services.starts_at < ?", start, end)
	if !r.opts.IncludeExtra {
		q = q.Where("services.type = ?", models.ServiceRegular)
	}

	var rows []models.Assignment
	if err := q.Order("services.starts_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list member duties: %w", err)
	}
	return rows, nil
}

// confirmedRow is one confirmed assignment projected onto its service start
type confirmedRow struct {
	MemberID uint
	StartsAt time.Time
}

func (r *GormRepository) confirmedQuery(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("assignments").
		Select("assignments.member_id, services.starts_at").
		Joins("JOIN services ON services.id = assignments.service_id").
		Where("assignments.status = ?", models.StatusConfirmed)
	if !r.opts.IncludeExtra {
		q = q.Where("services.type = ?", models.ServiceRegular)
	}
	return q
}

func (r *GormRepository) monthConfirmed(ctx context.Context, year, month int) ([]confirmedRow, error) {
	start, end := MonthRange(year, month)
	var rows []confirmedRow
	if err := r.confirmedQuery(ctx).
		Where("services.starts_at >= ? AND services.starts_at < ?", start, end).
		Order("services.starts_at").Order("assignments.id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list month confirmed: %w", err)
	}
	return rows, nil
}

func (r *GormRepository) MonthConfirmedCounts(ctx context.Context, year, month int) (map[uint]int, error) {
	rows, err := r.monthConfirmed(ctx, year, month)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int)
	for _, row := range rows {
		counts[row.MemberID]++
	}
	return counts, nil
}

func (r *GormRepository) MonthDayBlock(ctx context.Context, year, month int) (map[models.Day]map[uint]struct{}, error) {
	rows, err := r.monthConfirmed(ctx, year, month)
	if err != nil {
		return nil, err
	}
	block := make(map[models.Day]map[uint]struct{})
	for _, row := range rows {
		day := models.DayOf(row.StartsAt)
		if block[day] == nil {
			block[day] = make(map[uint]struct{})
		}
		block[day][row.MemberID] = struct{}{}
	}
	return block, nil
}

func (r *GormRepository) MonthConfirmedTimeline(ctx context.Context, year, month int) ([]models.ConfirmedDuty, error) {
	rows, err := r.monthConfirmed(ctx, year, month)
	if err != nil {
		return nil, err
	}
	timeline := make([]models.ConfirmedDuty, 0, len(rows))
	for _, row := range rows {
		timeline = append(timeline, models.ConfirmedDuty{At: row.StartsAt.UTC(), MemberID: row.MemberID})
	}
	return timeline, nil
}

func (r *GormRepository) BaselineLastConfirmed(ctx context.Context, before time.Time) (map[uint]*time.Time, error) {
	var rows []confirmedRow
	if err := r.confirmedQuery(ctx).
		Where("services.starts_at < ?", before.UTC()).
		Order("assignments.member_id").Order("services.starts_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("baseline last confirmed: %w", err)
	}

	out := make(map[uint]*time.Time)
	for _, row := range rows {
		if _, seen := out[row.MemberID]; seen {
			continue
		}
		at := row.StartsAt.UTC()
		out[row.MemberID] = &at
	}

	members, err := r.ActiveMembers(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if _, ok := out[m.ID]; !ok {
			out[m.ID] = nil
		}
	}
	return out, nil
}

func (r *GormRepository) LockAssignments(ctx context.Context, serviceIDs []uint) ([]models.Assignment, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Where("service_id IN ?", serviceIDs)
	// sqlite serialises writers itself and has no FOR UPDATE
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var rows []models.Assignment
	if err := q.Order("service_id").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lock assignments: %w", err)
	}
	return rows, nil
}

func (r *GormRepository) CreateAssignment(ctx context.Context, a *models.Assignment) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a)
	if res.Error != nil {
		return false, fmt.Errorf("create assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := r.notify(ctx, nil, a); err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormRepository) CreateAssignments(ctx context.Context, rows []models.Assignment) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 100)
	if res.Error != nil {
		return 0, fmt.Errorf("bulk create assignments: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *GormRepository) UpdateAssignment(ctx context.Context, a *models.Assignment) error {
	var before *models.Assignment
	if r.opts.Observer != nil {
		var prev models.Assignment
		if err := r.db.WithContext(ctx).First(&prev, a.ID).Error; err != nil {
			return fmt.Errorf("load assignment %d: %w", a.ID, notFound(err))
		}
		before = &prev
	}

	if err := r.db.WithContext(ctx).
		Model(a).
		Select("member_id", "status", "created_by", "updated_at").
		Updates(a).Error; err != nil {
		return fmt.Errorf("update assignment %d: %w", a.ID, err)
	}
	return r.notify(ctx, before, a)
}

func (r *GormRepository) notify(ctx context.Context, before, after *models.Assignment) error {
	if r.opts.Observer == nil {
		return nil
	}
	if err := r.opts.Observer.AssignmentSaved(ctx, r.db.WithContext(ctx), before, after); err != nil {
		return fmt.Errorf("assignment observer: %w", err)
	}
	return nil
}

func (r *GormRepository) EnsureScheduleMonth(ctx context.Context, year, month int, actor string) (bool, error) {
	marker := models.ScheduleMonth{Year: year, Month: month, GeneratedBy: optional(actor)}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
	if res.Error != nil {
		return false, fmt.Errorf("ensure schedule month: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) GetAssignment(ctx context.Context, id uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := r.db.WithContext(ctx).Preload("Service").First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *GormRepository) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var s models.Service
	if err := r.db.WithContext(ctx).
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&s, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *GormRepository) GetMember(ctx context.Context, id uint) (*models.Member, error) {
	var m models.Member
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx, opts: r.opts})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
