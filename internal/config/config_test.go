package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GRAIN_ADDR", "GRAIN_DB", "REDIS_URL", "GRAIN_BASE_URL",
		"GRAIN_ADMIN_BASE_URL", "GRAIN_MARKET_CACHE_TTL", "GRAIN_ROWS_LIMIT",
	} {
		t.Setenv(key, "placeholder")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8980" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "grain.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty (search disabled)", cfg.RedisURL)
	}
	if cfg.BaseURL != "https://grainpro.ru/" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.MarketCacheTTL != 5*time.Minute {
		t.Errorf("MarketCacheTTL = %s, want 5m", cfg.MarketCacheTTL)
	}
	if cfg.DefaultRowsLimit != -1 {
		t.Errorf("DefaultRowsLimit = %d, want -1 (unlimited)", cfg.DefaultRowsLimit)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAIN_ADDR", "0.0.0.0:9000")
	t.Setenv("GRAIN_DB", "/var/lib/grain/grain.db")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("GRAIN_MARKET_CACHE_TTL", "30s")
	t.Setenv("GRAIN_ROWS_LIMIT", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "/var/lib/grain/grain.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.MarketCacheTTL != 30*time.Second {
		t.Errorf("MarketCacheTTL = %s", cfg.MarketCacheTTL)
	}
	if cfg.DefaultRowsLimit != 25 {
		t.Errorf("DefaultRowsLimit = %d", cfg.DefaultRowsLimit)
	}
}

func TestLoad_NormalizesBaseURLs(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAIN_BASE_URL", "https://grainpro.ru")
	t.Setenv("GRAIN_ADMIN_BASE_URL", "https://admin.grainpro.ru")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://grainpro.ru/" {
		t.Errorf("BaseURL = %q, want trailing slash", cfg.BaseURL)
	}
	if cfg.AdminBaseURL != "https://admin.grainpro.ru/" {
		t.Errorf("AdminBaseURL = %q, want trailing slash", cfg.AdminBaseURL)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRAIN_MARKET_CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Error("unparseable TTL accepted")
	}

	clearEnv(t)
	t.Setenv("GRAIN_MARKET_CACHE_TTL", "0s")
	if _, err := Load(); err == nil {
		t.Error("zero TTL accepted")
	}

	clearEnv(t)
	t.Setenv("GRAIN_ADDR", "no-port")
	if _, err := Load(); err == nil {
		t.Error("address without port accepted")
	}
}
