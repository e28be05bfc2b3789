// Package config handles application configuration: built-in defaults,
// overridden by an optional YAML file, overridden by environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/topicsum/internal/client"
	"github.com/briangreenhill/topicsum/internal/session"
)

// Config holds everything the CLI and the façade need.
type Config struct {
	// BaseURL of the summarization service.
	BaseURL string `yaml:"base_url" env:"TOPICSUM_BASE_URL"`
	// CacheDir for the file store. Empty means the per-user default.
	CacheDir string `yaml:"cache_dir" env:"TOPICSUM_CACHE_DIR"`
	// DatabaseURL switches the result store to Postgres when set.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	// Addr the façade listens on.
	Addr string `yaml:"addr" env:"TOPICSUM_ADDR"`

	PollInterval time.Duration `yaml:"poll_interval" env:"TOPICSUM_POLL_INTERVAL"`
	PollTimeout  time.Duration `yaml:"poll_timeout" env:"TOPICSUM_POLL_TIMEOUT"`

	// SweepSchedule is a cron expression for periodic cache expiry sweeps.
	SweepSchedule string `yaml:"sweep_schedule" env:"TOPICSUM_SWEEP_SCHEDULE"`
}

func defaults() Config {
	return Config{
		BaseURL:       client.DefaultBaseURL,
		Addr:          ":8370",
		PollInterval:  session.DefaultPollInterval,
		PollTimeout:   session.DefaultTimeout,
		SweepSchedule: "0 4 * * *",
	}
}

// Load builds the configuration. path may be empty; a missing file at an
// explicitly given path is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the poll loop cannot run with.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("poll_timeout must be positive, got %s", c.PollTimeout)
	}
	return nil
}
