package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server and the CLI need
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

// DatabaseConfig selects postgres (URL set) or a local sqlite file
type DatabaseConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

// AuthConfig carries the secrets used by pkg/auth
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	APIMasterSecret string        `mapstructure:"api_master_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	AdminUsername   string        `mapstructure:"admin_username"`
	AdminPassword   string        `mapstructure:"admin_password"`
}

// SchedulingConfig tunes the suggestion engine and service provisioning
type SchedulingConfig struct {
	DefaultMonthlyLimit    int    `mapstructure:"default_monthly_limit"`
	SuggestForExtra        bool   `mapstructure:"suggest_for_extra"`
	CountExtraInLastServed bool   `mapstructure:"count_extra_in_last_served"`
	ResuggestOnAdd         bool   `mapstructure:"resuggest_on_add"`
	DefaultMorningTime     string `mapstructure:"default_morning_time"`
	DefaultEveningTime     string `mapstructure:"default_evening_time"`
	TimeZone               string `mapstructure:"time_zone"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig toggles the /metrics endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// flat environment names, as deployed
var envBindings = map[string]string{
	"server.port":                           "PORT",
	"server.gin_mode":                       "GIN_MODE",
	"db.url":                                "DATABASE_URL",
	"db.path":                               "DATA_PATH",
	"auth.jwt_secret":                       "JWT_SECRET",
	"auth.api_master_secret":                "API_MASTER_SECRET",
	"auth.token_ttl":                        "TOKEN_TTL",
	"auth.admin_username":                   "ADMIN_USERNAME",
	"auth.admin_password":                   "ADMIN_PASSWORD",
	"scheduling.default_monthly_limit":      "DEFAULT_MONTHLY_LIMIT",
	"scheduling.suggest_for_extra":          "SUGGEST_FOR_EXTRA",
	"scheduling.count_extra_in_last_served": "COUNT_EXTRA_IN_LAST_SERVED",
	"scheduling.resuggest_on_add":           "RESUGGEST_ON_ADD",
	"scheduling.default_morning_time":       "DEFAULT_MORNING_TIME",
	"scheduling.default_evening_time":       "DEFAULT_EVENING_TIME",
	"scheduling.time_zone":                  "TIME_ZONE",
	"log.level":                             "LOG_LEVEL",
	"log.format":                            "LOG_FORMAT",
	"metrics.enabled":                       "METRICS_ENABLED",
}

// LoadDotEnv loads the first .env found in the working directory or its parents
func LoadDotEnv() {
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}
}

// Load reads defaults, an optional config file and the environment, in that order of precedence
func Load(path string) (*Config, error) {
	LoadDotEnv()

	v := viper.New()

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.gin_mode", "")

	v.SetDefault("db.url", "")
	v.SetDefault("db.path", "roster.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.api_master_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "admin123")

	v.SetDefault("scheduling.default_monthly_limit", 2)
	v.SetDefault("scheduling.suggest_for_extra", false)
	v.SetDefault("scheduling.count_extra_in_last_served", false)
	v.SetDefault("scheduling.resuggest_on_add", false)
	v.SetDefault("scheduling.default_morning_time", "09:00")
	v.SetDefault("scheduling.default_evening_time", "18:00")
	v.SetDefault("scheduling.time_zone", "America/Sao_Paulo")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("metrics.enabled", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the engine cannot work with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Scheduling.DefaultMonthlyLimit < 1 {
		return fmt.Errorf("config: scheduling.default_monthly_limit must be at least 1, got %d", c.Scheduling.DefaultMonthlyLimit)
	}
	for _, clock := range []string{c.Scheduling.DefaultMorningTime, c.Scheduling.DefaultEveningTime} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return fmt.Errorf("config: invalid HH:MM time %q", clock)
		}
	}
	if _, err := time.LoadLocation(c.Scheduling.TimeZone); err != nil {
		return fmt.Errorf("config: unknown time zone %q: %w", c.Scheduling.TimeZone, err)
	}
	return nil
}

// Location returns the configured scheduling time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
