package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arnavshah/duty-roster-go/pkg/config"
	"github.com/arnavshah/duty-roster-go/pkg/database"
	"github.com/arnavshah/duty-roster-go/pkg/models"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, names ...string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.db")
	t.Setenv("DATA_PATH", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	db, err := database.InitDB(config.DatabaseConfig{Path: path}, zap.NewNop())
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, db.Create(&models.Member{Name: n, Active: true}).Error)
	}
}

func TestResolveMonth(t *testing.T) {
	today := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)

	y, m := resolveMonth(today, 0, 0, false)
	assert.Equal(t, []int{2025, 12}, []int{y, m})

	y, m = resolveMonth(today, 0, 0, true)
	assert.Equal(t, []int{2026, 1}, []int{y, m})

	y, m = resolveMonth(today, 2024, 3, true)
	assert.Equal(t, []int{2024, 3}, []int{y, m})
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, path := range [][]string{{"generate"}, {"reconcile"}, {"rank"}, {"services", "ensure"}, {"keygen"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	rank, _, err := cmd.Find([]string{"rank"})
	require.NoError(t, err)
	top := rank.Flags().Lookup("top")
	require.NotNil(t, top)
	assert.Equal(t, "5", top.DefValue)
}

func TestGenerateReconcileRank(t *testing.T) {
	seed(t, "Ana", "Bruno")

	out, err := execute(t, "generate", "--year", "2025", "--month", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "[ensure] 10 service(s) created; total in 2025-06: 10")
	assert.Contains(t, out, "Dry-run completed for 2025-06")

	out, err = execute(t, "generate", "--year", "2025", "--month", "6", "--commit", "--user", "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "[ensure] 0 service(s) created")
	assert.Contains(t, out, "[suggest] Schedule created; 4 suggestion(s) added for 2025-06.")

	out, err = execute(t, "reconcile", "--year", "2025", "--month", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "[reconcile] 0 service(s) changed in 2025-06")

	out, err = execute(t, "rank", "--year", "2025", "--month", "6", "--top", "2", "--format", "yaml")
	require.NoError(t, err)
	var entries []rankEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 10)
	require.Len(t, entries[0].Candidates, 2)
	assert.Equal(t, "Ana", entries[0].Candidates[0].Name)
	assert.Equal(t, "2025-06-01 09:00", entries[0].StartsAt)

	out, err = execute(t, "rank", "--year", "2025", "--month", "6")
	require.NoError(t, err)
	assert.Contains(t, out, "#1  2025-06-01 09:00")

	_, err = execute(t, "rank", "--year", "2025", "--month", "6", "--format", "xml")
	assert.Error(t, err)
	_, err = execute(t, "reconcile", "--year", "2025", "--month", "13")
	assert.Error(t, err)
}

func TestServicesEnsure(t *testing.T) {
	seed(t)

	out, err := execute(t, "services", "ensure", "--year", "2026", "--month", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "[ensure] 8 service(s) created for 2026-02")
}

func TestKeygen(t *testing.T) {
	seed(t)

	t.Setenv("API_MASTER_SECRET", "")
	_, err := execute(t, "keygen", "parish")
	assert.Error(t, err)

	t.Setenv("API_MASTER_SECRET", "master")
	out, err := execute(t, "keygen", "parish")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated Key for parish:\nparish.")
}
