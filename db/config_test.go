package db

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Limits.MaxCommandLen != DefaultMaxCommandLen {
		t.Errorf("unexpected command length cap: %d", cfg.Limits.MaxCommandLen)
	}
	if cfg.Limits.MaxBatchCommands != DefaultMaxBatchCommands {
		t.Errorf("unexpected batch cap: %d", cfg.Limits.MaxBatchCommands)
	}
	if cfg.Identity.Name == "" || cfg.Identity.Email == "" {
		t.Error("expected a default identity")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strata.yaml")
	content := `mode: terse
identity:
  name: Ops
  email: ops@example.com
limits:
  maxCommandLen: 100
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Mode != "terse" {
		t.Errorf("expected mode terse, got %s", cfg.Mode)
	}
	if cfg.Identity.Name != "Ops" {
		t.Errorf("expected identity override, got %s", cfg.Identity.Name)
	}
	if cfg.Limits.MaxCommandLen != 100 {
		t.Errorf("expected command cap override, got %d", cfg.Limits.MaxCommandLen)
	}
	// Unset limits keep their defaults.
	if cfg.Limits.MaxBatchCommands != DefaultMaxBatchCommands {
		t.Errorf("expected default batch cap, got %d", cfg.Limits.MaxBatchCommands)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
