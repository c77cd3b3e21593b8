package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
	"github.com/arnavshah/duty-roster-go/pkg/models"
	"github.com/arnavshah/duty-roster-go/pkg/repository"
)

func setup(t *testing.T, countExtra bool) (*gorm.DB, *repository.GormRepository) {
	t.Helper()
	db, err := database.InitDB(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "roster.db")}, zap.NewNop())
	require.NoError(t, err)
	return db, repository.New(db, repository.Options{Observer: NewRecorder(countExtra)})
}

func lastServed(t *testing.T, db *gorm.DB, id uint) *time.Time {
	t.Helper()
	var m models.Member
	require.NoError(t, db.First(&m, id).Error)
	return m.LastServedAt
}

func TestRecorder_CreateAndSwap(t *testing.T) {
	db, repo := setup(t, false)
	ana := models.Member{Name: "Ana", Active: true}
	bruno := models.Member{Name: "Bruno", Active: true}
	require.NoError(t, db.Create(&ana).Error)
	require.NoError(t, db.Create(&bruno).Error)
	svc := models.Service{StartsAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), Type: models.ServiceRegular}
	require.NoError(t, db.Create(&svc).Error)

	ctx := WithAuthor(context.Background(), "admin")
	a := &models.Assignment{ServiceID: svc.ID, MemberID: ana.ID, Status: models.StatusConfirmed}
	created, err := repo.CreateAssignment(ctx, a)
	require.NoError(t, err)
	require.True(t, created)

	got := lastServed(t, db, ana.ID)
	require.NotNil(t, got)
	assert.True(t, got.Equal(svc.StartsAt))

	a.MemberID = bruno.ID
	a.Status = models.StatusReplaced
	require.NoError(t, repo.UpdateAssignment(ctx, a))

	assert.Nil(t, lastServed(t, db, ana.ID))
	assert.Nil(t, lastServed(t, db, bruno.ID))

	var logs []models.AuditLog
	require.NoError(t, db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, ActionCreate, logs[0].Action)
	assert.Equal(t, "assignments", logs[0].Table)
	assert.JSONEq(t, "null", string(logs[0].Before))
	require.NotNil(t, logs[0].Author)
	assert.Equal(t, "admin", *logs[0].Author)

	assert.Equal(t, ActionUpdate, logs[1].Action)
	var before, after assignmentSnapshot
	require.NoError(t, json.Unmarshal(logs[1].Before, &before))
	require.NoError(t, json.Unmarshal(logs[1].After, &after))
	assert.Equal(t, ana.ID, before.MemberID)
	assert.Equal(t, models.StatusConfirmed, before.Status)
	assert.Equal(t, bruno.ID, after.MemberID)
	assert.Equal(t, models.StatusReplaced, after.Status)
}

func TestRecorder_ExtraServicesOptIn(t *testing.T) {
	for _, countExtra := range []bool{false, true} {
		db, repo := setup(t, countExtra)
		ana := models.Member{Name: "Ana", Active: true}
		require.NoError(t, db.Create(&ana).Error)
		extra := models.Service{StartsAt: time.Date(2025, 6, 4, 19, 30, 0, 0, time.UTC), Type: models.ServiceExtra}
		require.NoError(t, db.Create(&extra).Error)

		_, err := repo.CreateAssignment(context.Background(), &models.Assignment{
			ServiceID: extra.ID, MemberID: ana.ID, Status: models.StatusConfirmed,
		})
		require.NoError(t, err)

		if countExtra {
			assert.NotNil(t, lastServed(t, db, ana.ID))
		} else {
			assert.Nil(t, lastServed(t, db, ana.ID))
		}
	}
}

func TestAuthorFrom(t *testing.T) {
	assert.Empty(t, AuthorFrom(context.Background()))
	assert.Equal(t, "ops", AuthorFrom(WithAuthor(context.Background(), "ops")))
}
