package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VALD_AUTH_URL", "https://auth.test/oauth/token")
	t.Setenv("VALD_CLIENT_ID", "client")
	t.Setenv("VALD_CLIENT_SECRET", "secret")
	t.Setenv("VALD_FORCEDECKS_URL", "https://fd.test")
	t.Setenv("VALD_PROFILE_URL", "https://profiles.test")
	t.Setenv("VALD_TENANT_ID", "tenant-1")
	t.Setenv("WAREHOUSE_DSN", "postgres://localhost/vald")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VALD.Timeout != 30*time.Second {
		t.Errorf("vald timeout default: got %v", cfg.VALD.Timeout)
	}
	if cfg.State.Backend != "sqlite" {
		t.Errorf("state backend default: got %q", cfg.State.Backend)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry attempts default: got %d", cfg.Retry.MaxAttempts)
	}
	start, err := cfg.WindowStart()
	if err != nil {
		t.Fatalf("WindowStart: %v", err)
	}
	if start.Year() != 2020 {
		t.Errorf("default window start: got %v", start)
	}
}

func TestLoad_MissingCredentialIsConfigError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VALD_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing client secret")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestLoad_RedisBackendNeedsAddr(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATE_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis backend without addr")
	}

	t.Setenv("STATE_REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.State.Backend != "redis" {
		t.Errorf("backend: got %q", cfg.State.Backend)
	}
}

func TestLoad_UnknownStateBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STATE_BACKEND", "dynamodb")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown state backend")
	}
}

func TestLoad_ArchiveNeedsDir(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ARCHIVE_ENABLED", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for archive without dir")
	}
}
