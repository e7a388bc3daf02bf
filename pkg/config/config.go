package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config holds all configuration for history-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (passwords) must
// only come from environment variables.
type Config struct {
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// CacheStorageKey is the externally supplied storage key the persisted
	// metadata cache blob lives under.
	CacheStorageKey string `yaml:"cache_storage_key" env:"CACHE_STORAGE_KEY" env-default:"history-engine/metadata-cache"`

	// SchemaMapPath points at an offline schema map (YAML) used as a
	// cold-start substitute for live metadata fetches. Optional.
	SchemaMapPath string `yaml:"schema_map_path" env:"SCHEMA_MAP_PATH" env-default:""`

	History HistoryConfig `yaml:"history"`
	Store   StoreConfig   `yaml:"store"`
}

// HistoryConfig tunes change-history fetching.
type HistoryConfig struct {
	// PageSize is the requested page size for change-history fetches.
	PageSize int `yaml:"page_size" env:"HISTORY_PAGE_SIZE" env-default:"100"`
	// MaxConcurrentFetches bounds concurrent per-entity history fetches.
	MaxConcurrentFetches int `yaml:"max_concurrent_fetches" env:"HISTORY_MAX_CONCURRENT_FETCHES" env-default:"8"`
}

// StoreConfig selects and configures the persistence backend for the
// metadata cache.
type StoreConfig struct {
	// Backend is one of "memory", "redis", "badger", "postgres".
	Backend string `yaml:"backend" env:"STORE_BACKEND" env-default:"memory"`

	// BadgerPath is the directory for Badger files (badger backend only).
	BadgerPath string `yaml:"badger_path" env:"STORE_BADGER_PATH" env-default:""`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns the host:port address for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig holds PostgreSQL configuration for the postgres store.
type PostgresConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"history"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"history_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the environment alone is
// enough for every field.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	case BackendBadger:
		if c.Store.BadgerPath == "" {
			return fmt.Errorf("store backend %q requires badger_path", BackendBadger)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.History.PageSize <= 0 {
		return fmt.Errorf("history page_size must be positive")
	}
	if c.History.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("history max_concurrent_fetches must be positive")
	}

	return nil
}
