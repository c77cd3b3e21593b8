package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/models"
)

// ErrInvalidTime is returned for a wall-clock time that is not HH:MM
var ErrInvalidTime = errors.New("invalid time of day")

// Clock is a wall-clock time of day
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock reads an "HH:MM" string
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On places the clock on a calendar day, as a UTC wall-clock instant
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, time.UTC)
}

// SundaysInMonth lists every Sunday of the month at midnight UTC
func SundaysInMonth(year, month int) []time.Time {
	var out []time.Time
	day := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == time.Month(month) {
		if day.Weekday() == time.Sunday {
			out = append(out, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// Provisioner creates the services a month needs
type Provisioner struct {
	db      *gorm.DB
	morning Clock
	evening Clock
}

// NewProvisioner reads the default morning and evening times from the scheduling config
func NewProvisioner(db *gorm.DB, cfg config.SchedulingConfig) (*Provisioner, error) {
	morning, err := ParseClock(cfg.DefaultMorningTime)
	if err != nil {
		return nil, err
	}
	evening, err := ParseClock(cfg.DefaultEveningTime)
	if err != nil {
		return nil, err
	}
	return &Provisioner{db: db, morning: morning, evening: evening}, nil
}

// EnsureMonthServices creates the missing morning and evening regular services of every Sunday
// and returns how many it created
func (p *Provisioner) EnsureMonthServices(ctx context.Context, year, month int) (int, error) {
	return p.ensure(ctx, SundaysInMonth(year, month), []Clock{p.morning, p.evening}, models.ServiceRegular, "")
}

// EnsureDateServices creates the missing services of one day. Without times it uses the
// configured morning and evening.
func (p *Provisioner) EnsureDateServices(ctx context.Context, day time.Time, times []Clock, typ models.ServiceType, label string) (int, error) {
	if len(times) == 0 {
		times = []Clock{p.morning, p.evening}
	}
	if typ == "" {
		typ = models.ServiceRegular
	}
	return p.ensure(ctx, []time.Time{day}, times, typ, label)
}

func (p *Provisioner) ensure(ctx context.Context, days []time.Time, times []Clock, typ models.ServiceType, label string) (int, error) {
	if len(days) == 0 || len(times) == 0 {
		return 0, nil
	}

	var wanted []time.Time
	for _, d := range days {
		for _, c := range times {
			wanted = append(wanted, c.On(d))
		}
	}

	var existing []time.Time
	if err := p.db.WithContext(ctx).
		Model(&models.Service{}).
		Where("starts_at IN ?", wanted).
		Pluck("starts_at", &existing).Error; err != nil {
		return 0, fmt.Errorf("list existing services: %w", err)
	}
	taken := make(map[int64]bool, len(existing))
	for _, ts := range existing {
		taken[ts.Unix()] = true
	}

	var labelRef *string
	if label != "" {
		labelRef = &label
	}

	var missing []models.Service
	for _, ts := range wanted {
		if taken[ts.Unix()] {
			continue
		}
		missing = append(missing, models.Service{StartsAt: ts, Type: typ, Label: labelRef})
	}
	if len(missing) == 0 {
		return 0, nil
	}

	if err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&missing).Error; err != nil {
		return 0, fmt.Errorf("create services: %w", err)
	}
	return len(missing), nil
}
