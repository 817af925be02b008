// Package config loads the agentstore CLI configuration from an optional
// YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calyptra/agentstore/common/environment"
	"github.com/calyptra/agentstore/internal/store"
)

// Config carries the operator-tunable knobs for the CLI tool.
type Config struct {
	// DatabasePath is the SQLite file location; ":memory:" is accepted.
	DatabasePath string `yaml:"database_path"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogSource includes source file locations in log records.
	LogSource bool `yaml:"log_source"`
	// BusyTimeoutMS is the SQLite busy timeout in milliseconds.
	BusyTimeoutMS int `yaml:"busy_timeout_ms"`
	// ContentSchemas maps memory namespaces to JSON Schema documents applied
	// on every memory write in that namespace.
	ContentSchemas map[string]string `yaml:"content_schemas"`
}

// Load reads the YAML file at path (skipped when path is empty), then applies
// the AGENTSTORE_* environment overrides. Environment wins over file, file
// wins over defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabasePath:  "./agentstore.db",
		LogLevel:      "info",
		BusyTimeoutMS: store.DefaultBusyTimeoutMS,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
		if cfg.DatabasePath == "" {
			cfg.DatabasePath = "./agentstore.db"
		}
		if cfg.LogLevel == "" {
			cfg.LogLevel = "info"
		}
		if cfg.BusyTimeoutMS <= 0 {
			cfg.BusyTimeoutMS = store.DefaultBusyTimeoutMS
		}
	}

	cfg.DatabasePath = environment.StringOr("AGENTSTORE_DB_PATH", cfg.DatabasePath)
	cfg.LogLevel = environment.StringOr("AGENTSTORE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogSource = environment.BoolOr("AGENTSTORE_LOG_SOURCE", cfg.LogSource)
	cfg.BusyTimeoutMS = environment.IntOr("AGENTSTORE_BUSY_TIMEOUT_MS", cfg.BusyTimeoutMS)

	return cfg, nil
}
