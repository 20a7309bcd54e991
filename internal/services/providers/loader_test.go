package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoadDescriptors_TomlAndYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "claude.toml", `
name = "claude-primary"
driver = "claude"
type = "text"
priority = 1
cost_per_request = 0.015

[rate_limit]
per_minute = 50
per_hour = 900
`)
	writeFile(t, dir, "relay.yaml", `
name: local-relay
driver: relay
type: both
priority: 2
endpoint: http://localhost:8080
`)
	writeFile(t, dir, "notes.txt", "not a descriptor")

	descriptors, err := LoadDescriptors(dir, arbor.NewLogger())
	if err != nil {
		t.Fatalf("LoadDescriptors failed: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}

	byName := make(map[string]*models.ProviderDescriptor)
	for _, d := range descriptors {
		byName[d.Name] = d
	}

	claude := byName["claude-primary"]
	if claude == nil {
		t.Fatal("claude descriptor not loaded")
	}
	if claude.RateLimit.PerMinute != 50 || claude.RateLimit.PerHour != 900 {
		t.Errorf("claude rate limits not preserved: %+v", claude.RateLimit)
	}

	relay := byName["local-relay"]
	if relay == nil {
		t.Fatal("relay descriptor not loaded")
	}
	if relay.Type != models.CapabilityBoth {
		t.Errorf("relay type = %s, want both", relay.Type)
	}
	// Omitted rate limits fall back to defaults
	if relay.RateLimit.PerMinute != DefaultPerMinute || relay.RateLimit.PerHour != DefaultPerHour {
		t.Errorf("relay rate limits not defaulted: %+v", relay.RateLimit)
	}
}

func TestLoadDescriptors_SkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "valid.toml", `
name = "good"
driver = "gemini"
type = "image"
`)
	// Missing driver fails validation
	writeFile(t, dir, "invalid.toml", `
name = "bad"
type = "text"
`)
	// Unknown driver fails the oneof constraint
	writeFile(t, dir, "unknown.toml", `
name = "worse"
driver = "carrier-pigeon"
type = "text"
`)
	writeFile(t, dir, "broken.yaml", "::: not yaml :::")

	descriptors, err := LoadDescriptors(dir, arbor.NewLogger())
	if err != nil {
		t.Fatalf("LoadDescriptors failed: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descriptors))
	}
	if descriptors[0].Name != "good" {
		t.Errorf("wrong descriptor survived: %s", descriptors[0].Name)
	}
}

func TestLoadDescriptors_EnvAPIKey(t *testing.T) {
	t.Setenv("GENERO_TEST_API_KEY", "sk-test-123")

	dir := t.TempDir()
	writeFile(t, dir, "claude.toml", `
name = "claude"
driver = "claude"
type = "text"
api_key = "env:GENERO_TEST_API_KEY"
`)

	descriptors, err := LoadDescriptors(dir, arbor.NewLogger())
	if err != nil {
		t.Fatalf("LoadDescriptors failed: %v", err)
	}
	if len(descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(descriptors))
	}
	if descriptors[0].APIKey != "sk-test-123" {
		t.Errorf("api key not resolved from environment: %q", descriptors[0].APIKey)
	}
}

func TestLoadDescriptors_MissingDir(t *testing.T) {
	if _, err := LoadDescriptors(filepath.Join(t.TempDir(), "nope"), arbor.NewLogger()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
