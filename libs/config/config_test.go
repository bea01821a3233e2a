package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	API struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Retries int    `yaml:"retries"`
	Secret  string `yaml:"secret" env:"TEST_SECRET"`
}

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
}

func TestLoad_FromFile(t *testing.T) {
	writeConfigFile(t, `
api:
  url: https://example.test
  timeout: 45s
retries: 3
`)

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "https://example.test" {
		t.Errorf("url: got %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 45*time.Second {
		t.Errorf("timeout: got %v", cfg.API.Timeout)
	}
	if cfg.Retries != 3 {
		t.Errorf("retries: got %d", cfg.Retries)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	writeConfigFile(t, `
api:
  url: https://example.test
  timeout: 45s
retries: 3
`)
	t.Setenv("API_URL", "https://override.test")
	t.Setenv("API_TIMEOUT", "2m")
	t.Setenv("RETRIES", "7")
	t.Setenv("TEST_SECRET", "hunter2")

	var cfg testConfig
	if err := Load(&cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.URL != "https://override.test" {
		t.Errorf("url: got %q", cfg.API.URL)
	}
	if cfg.API.Timeout != 2*time.Minute {
		t.Errorf("timeout: got %v", cfg.API.Timeout)
	}
	if cfg.Retries != 7 {
		t.Errorf("retries: got %d", cfg.Retries)
	}
	if cfg.Secret != "hunter2" {
		t.Errorf("secret tag override: got %q", cfg.Secret)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_TIMEOUT", "not-a-duration")

	var cfg testConfig
	if err := Load(&cfg); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_NilTarget(t *testing.T) {
	if err := Load(nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}
