// Package config reads the daemon settings from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the admin daemon configuration.
type Config struct {
	// Server
	Addr string `env:"GRAIN_ADDR" envDefault:"127.0.0.1:8980"`

	// Storage
	DBPath string `env:"GRAIN_DB" envDefault:"grain.db"`

	// Search mirror. Empty disables the search endpoints.
	RedisURL string `env:"REDIS_URL"`

	// Links embedded into rendered market tables. BaseURL points at the
	// public site, AdminBaseURL at the admin UI.
	BaseURL      string `env:"GRAIN_BASE_URL" envDefault:"https://grainpro.ru/"`
	AdminBaseURL string `env:"GRAIN_ADMIN_BASE_URL" envDefault:"https://grainpro.herokuapp.com/"`

	// Market view computation
	MarketCacheTTL   time.Duration `env:"GRAIN_MARKET_CACHE_TTL" envDefault:"5m"`
	DefaultRowsLimit int           `env:"GRAIN_ROWS_LIMIT" envDefault:"-1"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// Links are built by concatenation, so both bases must end in a slash.
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if !strings.HasSuffix(cfg.AdminBaseURL, "/") {
		cfg.AdminBaseURL += "/"
	}
	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" || !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("invalid listen address: %q", c.Addr)
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.MarketCacheTTL <= 0 {
		return fmt.Errorf("market cache TTL must be positive, got %s", c.MarketCacheTTL)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	if c.AdminBaseURL == "" {
		return fmt.Errorf("admin base URL must not be empty")
	}
	return nil
}
