// Package config supplies the settings this client reads: the capture service
// address and the completion service credentials and model.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvandermeulen/screenpipe/internal/pipe"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// Config holds all settings. The query engine treats it as read-only.
type Config struct {
	PipeURL string `json:"pipe_url"`
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	DBPath  string `json:"db_path"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".screenpipe", "timeline.json")
}

// DefaultDBPath returns the default query-log database location.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".screenpipe", "timeline.sqlite")
}

// Load reads the config file if present, then applies environment overrides
// and defaults. A missing file is not an error; env alone is enough.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("SCREENPIPE_URL"); v != "" {
		cfg.PipeURL = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.Model = v
	}

	if cfg.PipeURL == "" {
		cfg.PipeURL = pipe.DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	return cfg, nil
}
