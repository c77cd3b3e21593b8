package calendar

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
	"github.com/arnavshah/duty-roster-go/pkg/models"
)

func newProvisioner(t *testing.T) *Provisioner {
	t.Helper()
	db, err := database.InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "roster.db")}, zap.NewNop())
	require.NoError(t, err)
	p, err := NewProvisioner(db, config.SchedulingConfig{DefaultMorningTime: "09:00", DefaultEveningTime: "18:00"})
	require.NoError(t, err)
	return p
}

func TestSundaysInMonth(t *testing.T) {
	days := SundaysInMonth(2025, 6)
	require.Len(t, days, 5)
	assert.Equal(t, "2025-06-01", days[0].Format(time.DateOnly))
	assert.Equal(t, "2025-06-29", days[4].Format(time.DateOnly))

	assert.Len(t, SundaysInMonth(2026, 2), 4)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 7, Minute: 45}, c)
	assert.Equal(t, "07:45", c.String())

	_, err = ParseClock("7pm")
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = NewProvisioner(nil, config.SchedulingConfig{DefaultMorningTime: "09:00", DefaultEveningTime: "25:00"})
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestEnsureMonthServices(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()

	created, err := p.EnsureMonthServices(ctx, 2025, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, created)

	created, err = p.EnsureMonthServices(ctx, 2025, 6)
	require.NoError(t, err)
	assert.Zero(t, created)

	var services []models.Service
	require.NoError(t, p.db.Order("starts_at").Find(&services).Error)
	require.Len(t, services, 10)
	assert.Equal(t, models.ShiftMorning, services[0].Shift())
	assert.Equal(t, models.ShiftEvening, services[1].Shift())
	assert.Equal(t, models.ServiceRegular, services[0].Type)
	assert.Equal(t, 6, models.Weekday(services[0].StartsAt))
}

func TestEnsureDateServices_Extra(t *testing.T) {
	p := newProvisioner(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)

	created, err := p.EnsureDateServices(ctx, day, []Clock{{Hour: 19, Minute: 30}}, models.ServiceExtra, "Vigil")
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// the default pair is added next to the existing extra
	created, err = p.EnsureDateServices(ctx, day, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var extra models.Service
	require.NoError(t, p.db.Where("type = ?", models.ServiceExtra).First(&extra).Error)
	require.NotNil(t, extra.Label)
	assert.Equal(t, "Vigil", *extra.Label)
	assert.Equal(t, "2025-06-04", string(extra.Date()))
}
