package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinEntropy != 20 || cfg.MintAmount != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Store != StoreMemory || cfg.ListenAddr != ":8080" || cfg.TLS {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	h := cfg.Handler()
	if h.MinEntropy() != 20 || h.MintAmount() != 1 {
		t.Fatalf("handler not configured: %d %d", h.MinEntropy(), h.MintAmount())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("POP_MIN_ENTROPY", "35")
	t.Setenv("POP_MINT_AMOUNT", "4")
	t.Setenv("POP_STORE", "sqlite")
	t.Setenv("POP_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("POP_CORS_ORIGINS", "http://a,http://b")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MinEntropy != 35 || cfg.MintAmount != 4 || cfg.Store != StoreSQLite {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("POP_LISTEN_ADDR=127.0.0.1:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set.
	t.Setenv("POP_LISTEN_ADDR", "")
	os.Unsetenv("POP_LISTEN_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("expected address from .env, got %s", cfg.ListenAddr)
	}
}

func TestValidate(t *testing.T) {
	base := Config{MintAmount: 1, ListenAddr: ":1", Store: StoreMemory}
	cases := map[string]func(c *Config){
		"zero mint":       func(c *Config) { c.MintAmount = 0 },
		"no listen":       func(c *Config) { c.ListenAddr = "" },
		"unknown store":   func(c *Config) { c.Store = "redis" },
		"postgres no dsn": func(c *Config) { c.Store = StorePostgres },
		"sqlite no path":  func(c *Config) { c.Store = StoreSQLite },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
}

func TestLoadRejectsBadNumber(t *testing.T) {
	t.Setenv("POP_MIN_ENTROPY", "-3")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for negative entropy")
	}
}
