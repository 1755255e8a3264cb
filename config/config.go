// Package config provides node configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
)

// StoreKind selects the state backend.
type StoreKind string

const (
	StoreMemory   StoreKind = "memory"
	StoreSQLite   StoreKind = "sqlite"
	StorePostgres StoreKind = "postgres"
)

// Config holds all node configuration.
type Config struct {
	MinEntropy  uint32    `env:"POP_MIN_ENTROPY"  envDefault:"20"`
	MintAmount  uint64    `env:"POP_MINT_AMOUNT"  envDefault:"1"`
	ListenAddr  string    `env:"POP_LISTEN_ADDR"  envDefault:":8080"`
	Store       StoreKind `env:"POP_STORE"        envDefault:"memory"`
	SQLitePath  string    `env:"POP_SQLITE_PATH"  envDefault:"./data/pop.db"`
	PostgresDSN string    `env:"POP_POSTGRES_DSN"`
	TLS         bool      `env:"POP_TLS"          envDefault:"false"`
	CORSOrigins []string  `env:"POP_CORS_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file and then the environment.
func Load(dotenv ...string) (*Config, error) {
	// A missing .env file is fine; variables may come from the environment.
	_ = godotenv.Load(dotenv...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.MintAmount == 0 {
		return errors.New("POP_MINT_AMOUNT must be > 0")
	}
	if c.ListenAddr == "" {
		return errors.New("POP_LISTEN_ADDR cannot be empty")
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("POP_SQLITE_PATH cannot be empty")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POP_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown POP_STORE %q", c.Store)
	}
	return nil
}

// Handler builds a PoP handler with the configured threshold and mint amount.
func (c *Config) Handler() *pop.Handler {
	return pop.NewHandler(
		pop.WithMinEntropy(c.MinEntropy),
		pop.WithMintAmount(pop.Balance(c.MintAmount)),
	)
}
