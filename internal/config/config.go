package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "valdsync/libs/config"
)

// ConfigError marks a fatal configuration problem. It is never retried.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "config: " + e.msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a fatal configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// VALDConfig holds source API endpoints and credentials.
type VALDConfig struct {
	AuthURL       string        `yaml:"auth_url" env:"VALD_AUTH_URL"`
	ClientID      string        `yaml:"client_id" env:"VALD_CLIENT_ID"`
	ClientSecret  string        `yaml:"client_secret" env:"VALD_CLIENT_SECRET"`
	ForceDecksURL string        `yaml:"forcedecks_url" env:"VALD_FORCEDECKS_URL"`
	ProfileURL    string        `yaml:"profile_url" env:"VALD_PROFILE_URL"`
	TenantID      string        `yaml:"tenant_id" env:"VALD_TENANT_ID"`
	Timeout       time.Duration `yaml:"timeout" env:"VALD_TIMEOUT"`
	// AthleteDelay is a pause between per-athlete request bursts so a full
	// roster sweep stays under the API rate limit.
	AthleteDelay time.Duration `yaml:"athlete_delay" env:"VALD_ATHLETE_DELAY"`
}

// WarehouseConfig holds the destination database settings.
type WarehouseConfig struct {
	DSN         string `yaml:"dsn" env:"WAREHOUSE_DSN"`
	TablePrefix string `yaml:"table_prefix" env:"WAREHOUSE_TABLE_PREFIX"`
}

// StateConfig selects where the per-data-type last-success marker lives.
type StateConfig struct {
	Backend    string `yaml:"backend" env:"STATE_BACKEND"` // redis | sqlite
	RedisAddr  string `yaml:"redis_addr" env:"STATE_REDIS_ADDR"`
	RedisPass  string `yaml:"redis_password" env:"STATE_REDIS_PASSWORD"`
	RedisDB    int    `yaml:"redis_db" env:"STATE_REDIS_DB"`
	SQLitePath string `yaml:"sqlite_path" env:"STATE_SQLITE_PATH"`
	KeyPrefix  string `yaml:"key_prefix" env:"STATE_KEY_PREFIX"`
}

// RetryConfig bounds transient-failure retries for Fetch and Upload.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"RETRY_INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `yaml:"max_backoff" env:"RETRY_MAX_BACKOFF"`
}

// PipelineConfig holds run-level settings shared by all processors.
type PipelineConfig struct {
	// DefaultWindowStart bounds the first run, before any marker exists.
	DefaultWindowStart string `yaml:"default_window_start" env:"PIPELINE_DEFAULT_WINDOW_START"`
}

// ArchiveConfig controls the optional CSV snapshot of uploaded batches.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled" env:"ARCHIVE_ENABLED"`
	Dir     string `yaml:"dir" env:"ARCHIVE_DIR"`
}

// Config is the full valdsync configuration.
type Config struct {
	VALD      VALDConfig      `yaml:"vald"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	State     StateConfig     `yaml:"state"`
	Retry     RetryConfig     `yaml:"retry"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// Load reads configuration from the YAML file named by CONFIG_FILE plus
// environment overrides, applies defaults and validates required settings.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.VALD.Timeout = 30 * time.Second
	cfg.VALD.AthleteDelay = 2 * time.Second
	cfg.State.Backend = "sqlite"
	cfg.State.SQLitePath = "valdsync_state.db"
	cfg.State.KeyPrefix = "valdsync"
	cfg.Retry.MaxAttempts = 5
	cfg.Retry.InitialBackoff = 500 * time.Millisecond
	cfg.Retry.MaxBackoff = 30 * time.Second
	cfg.Pipeline.DefaultWindowStart = "2020-01-01T00:00:00Z"

	if err := libconfig.Load(cfg); err != nil {
		return nil, &ConfigError{msg: err.Error()}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, req := range []struct {
		name, value string
	}{
		{"vald.auth_url", c.VALD.AuthURL},
		{"vald.client_id", c.VALD.ClientID},
		{"vald.client_secret", c.VALD.ClientSecret},
		{"vald.forcedecks_url", c.VALD.ForceDecksURL},
		{"vald.profile_url", c.VALD.ProfileURL},
		{"vald.tenant_id", c.VALD.TenantID},
		{"warehouse.dsn", c.Warehouse.DSN},
	} {
		if strings.TrimSpace(req.value) == "" {
			return configErrorf("%s is required", req.name)
		}
	}

	switch c.State.Backend {
	case "redis":
		if strings.TrimSpace(c.State.RedisAddr) == "" {
			return configErrorf("state.redis_addr is required for the redis backend")
		}
	case "sqlite":
		if strings.TrimSpace(c.State.SQLitePath) == "" {
			return configErrorf("state.sqlite_path is required for the sqlite backend")
		}
	default:
		return configErrorf("state.backend must be redis or sqlite, got %q", c.State.Backend)
	}

	if c.Retry.MaxAttempts < 1 {
		return configErrorf("retry.max_attempts must be at least 1")
	}

	if _, err := c.WindowStart(); err != nil {
		return configErrorf("pipeline.default_window_start: %v", err)
	}

	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Dir) == "" {
		return configErrorf("archive.dir is required when archive.enabled is set")
	}

	return nil
}

// WindowStart parses the default processing-window start.
func (c *Config) WindowStart() (time.Time, error) {
	return time.Parse(time.RFC3339, c.Pipeline.DefaultWindowStart)
}
