// Package config loads the runtime configuration: defaults, then an optional
// YAML file, then CHATVIEW_* environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStoreBackend = "sqlite"
	DefaultStorePath    = "chatview.db"
	DefaultMetricsBind  = "127.0.0.1:9180"
)

// Config is the complete chatview configuration.
type Config struct {
	BotToken    string         `yaml:"bot_token" env:"CHATVIEW_BOT_TOKEN"`
	Store       StoreConfig    `yaml:"store"`
	Callback    CallbackConfig `yaml:"callback"`
	LogDir      string         `yaml:"log_dir" env:"CHATVIEW_LOG_DIR"`
	MetricsBind string         `yaml:"metrics_bind" env:"CHATVIEW_METRICS_BIND"`

	// AutoRefresh re-renders a view's message after every successful
	// handler run. Disable to refresh only when handlers ask for it.
	AutoRefresh bool `yaml:"auto_refresh" env:"CHATVIEW_AUTO_REFRESH"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Backend is one of sqlite, bolt, memory.
	Backend string `yaml:"backend" env:"CHATVIEW_STORE_BACKEND"`
	Path    string `yaml:"path" env:"CHATVIEW_STORE_PATH"`
}

// CallbackConfig shapes button callback payloads. Keep both values short:
// chat platforms cap the payload size.
type CallbackConfig struct {
	Prefix    string `yaml:"prefix" env:"CHATVIEW_CALLBACK_PREFIX"`
	Separator string `yaml:"separator" env:"CHATVIEW_CALLBACK_SEPARATOR"`
}

// DefaultConfig returns the configuration used when nothing is provided.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Path:    DefaultStorePath,
		},
		MetricsBind: DefaultMetricsBind,
		AutoRefresh: true,
	}
}

// Load builds the configuration: defaults, then the YAML file at path when
// one is given, then environment overrides. A missing file at an explicitly
// given path is an error; an empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields a broken deployment would otherwise only
// discover at first use. The bot token is checked by the caller, since dry
// runs work without one.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite", "bolt":
		if c.Store.Path == "" {
			return fmt.Errorf("store backend %q requires a path", c.Store.Backend)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend %q (want sqlite, bolt or memory)", c.Store.Backend)
	}
	return nil
}
