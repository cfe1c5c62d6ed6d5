// Package config defines the taskdeck application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level taskdeck configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Provider ProviderConfig `json:"provider" yaml:"provider"`
	Chat     ChatConfig     `json:"chat" yaml:"chat"`
	Board    BoardConfig    `json:"board" yaml:"board"`
	DataDir  string         `json:"data_dir" yaml:"data_dir"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8870"
}

// ProviderConfig configures the upstream text-generation backend.
type ProviderConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"` // or $OPENROUTER_API_KEY
	Model     string `json:"model,omitempty" yaml:"model"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens"`
}

// ChatConfig controls the classification chat flow.
type ChatConfig struct {
	// HistoryLimit bounds how many prior turns are sent upstream.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`
}

// BoardConfig controls board behavior.
type BoardConfig struct {
	// WIPLimit caps tasks allowed in the IN_PROGRESS column on direct
	// user edits.
	WIPLimit int `json:"wip_limit" yaml:"wip_limit"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8870",
		},
		Chat: ChatConfig{
			HistoryLimit: 20,
		},
		Board: BoardConfig{
			WIPLimit: 3,
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
