package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for quill-engine.
// Configuration comes from a YAML file (config.yaml) or environment variables;
// environment variables override YAML. Secrets must only come from env.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3210"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Metadata database (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Query execution limits for external connections
	Query QueryConfig `yaml:"query"`

	// Encryption key for stored connection passwords.
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML

	// Signing secret for public dashboard share tokens.
	ShareTokenSecret string `yaml:"-" env:"SHARE_TOKEN_SECRET"` // Secret - not in YAML
}

// DatabaseConfig holds metadata database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"quill"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"quill_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// URL returns the pgx connection URL for the metadata database.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// QueryConfig bounds execution against external target databases.
type QueryConfig struct {
	// DefaultRowLimit is appended to SELECTs that carry no LIMIT of their own.
	DefaultRowLimit int `yaml:"default_row_limit" env:"QUERY_DEFAULT_ROW_LIMIT" env-default:"1000"`
	// MaxRowLimit caps caller-supplied row limits.
	MaxRowLimit int `yaml:"max_row_limit" env:"QUERY_MAX_ROW_LIMIT" env-default:"100000"`
	// TimeoutSeconds bounds a single external query. An unbounded SELECT
	// against an arbitrary user database is an availability risk.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// Timeout returns the per-query execution timeout.
func (c *QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

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
	if c.CredentialsKey == "" {
		return errors.New("CREDENTIALS_KEY must be set")
	}
	if c.ShareTokenSecret == "" {
		return errors.New("SHARE_TOKEN_SECRET must be set")
	}
	if c.Query.DefaultRowLimit <= 0 {
		return errors.New("query.default_row_limit must be positive")
	}
	if c.Query.MaxRowLimit < c.Query.DefaultRowLimit {
		return errors.New("query.max_row_limit must be >= query.default_row_limit")
	}
	return nil
}

// IsLocal reports whether the server runs in a non-production-equivalent mode.
// Driver error detail is only exposed to callers in local mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "dev"
}
