package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8985 {
		t.Errorf("default port = %d, want 8985", cfg.Server.Port)
	}
	if len(cfg.Queues) != 4 {
		t.Fatalf("default queues = %d, want 4", len(cfg.Queues))
	}
	if _, ok := cfg.QueueByName("ai-generation"); !ok {
		t.Error("ai-generation queue missing from defaults")
	}
}

func TestLoadFromFiles_MergeOrder(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	os.WriteFile(base, []byte(`
environment = "production"

[server]
port = 9000
`), 0644)

	override := filepath.Join(dir, "override.toml")
	os.WriteFile(override, []byte(`
[server]
port = 9001
`), 0644)

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	// Later files win; untouched fields keep earlier values
	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Environment != "production" {
		t.Errorf("environment = %s, want production", cfg.Environment)
	}
	// Defaults survive for unmentioned sections
	if cfg.Usage.FailureThreshold != 5 {
		t.Errorf("failure threshold = %d, want default 5", cfg.Usage.FailureThreshold)
	}
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("GENERO_SERVER_PORT", "7777")
	t.Setenv("GENERO_LOG_LEVEL", "debug")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want env override 7777", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s, want debug", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestParseDurationOr(t *testing.T) {
	if got := ParseDurationOr("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("got %v", got)
	}
	if got := ParseDurationOr("", time.Second); got != time.Second {
		t.Errorf("empty string fallback: got %v", got)
	}
	if got := ParseDurationOr("garbage", 2*time.Second); got != 2*time.Second {
		t.Errorf("malformed fallback: got %v", got)
	}
}
