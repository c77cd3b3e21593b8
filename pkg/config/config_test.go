package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "roster.db", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Scheduling.DefaultMonthlyLimit)
	assert.False(t, cfg.Scheduling.SuggestForExtra)
	assert.Equal(t, "09:00", cfg.Scheduling.DefaultMorningTime)
	assert.Equal(t, "18:00", cfg.Scheduling.DefaultEveningTime)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FlatEnvironmentNames(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/roster")
	t.Setenv("DEFAULT_MONTHLY_LIMIT", "3")
	t.Setenv("SUGGEST_FOR_EXTRA", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@localhost/roster", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Scheduling.DefaultMonthlyLimit)
	assert.True(t, cfg.Scheduling.SuggestForExtra)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "roster.yaml")
	content := "scheduling:\n  default_morning_time: \"08:30\"\nlog:\n  format: console\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "08:30", cfg.Scheduling.DefaultMorningTime)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8000},
			Scheduling: SchedulingConfig{
				DefaultMonthlyLimit: 2,
				DefaultMorningTime:  "09:00",
				DefaultEveningTime:  "18:00",
				TimeZone:            "UTC",
			},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Scheduling.DefaultMonthlyLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduling.DefaultEveningTime = "6pm"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scheduling.TimeZone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}
