package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != ":8870" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Chat.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Board.WIPLimit != 3 {
		t.Errorf("WIPLimit = %d", cfg.Board.WIPLimit)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskdeck.yaml")
	data := `
server:
  addr: ":9999"
provider:
  api_key: sk-test
  model: openai/gpt-4o-mini
board:
  wip_limit: 5
log_level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Provider.APIKey != "sk-test" || cfg.Provider.Model != "openai/gpt-4o-mini" {
		t.Errorf("Provider = %+v", cfg.Provider)
	}
	if cfg.Board.WIPLimit != 5 {
		t.Errorf("WIPLimit = %d, want override", cfg.Board.WIPLimit)
	}
	// Untouched sections keep their defaults.
	if cfg.Chat.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d, want default", cfg.Chat.HistoryLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load returned nil error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load returned nil error for invalid YAML")
	}
}
