// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the server configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	StoreBackend  string `env:"STORE_BACKEND"  envDefault:"sqlite"`
	DBPath        string `env:"DB_PATH"        envDefault:"./data/formyfuture.db"`
	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX"   envDefault:"formyfuture"`

	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"           envDefault:"24h"`
	AdminIDs  []string      `env:"ADMIN_IDS"           envSeparator:","`

	// AdminPasswordHashes maps administrator ids to bcrypt hashes, as
	// "id:hash,id:hash". An administrator can only log in for the first time
	// with the provisioned password.
	AdminPasswordHashes map[string]string `env:"ADMIN_PASSWORD_HASHES" envSeparator:"," envKeyValSeparator:":"`

	// PayoutURL points at an external payout service. Empty keeps payouts in
	// the in-process custody account.
	PayoutURL     string        `env:"PAYOUT_URL"`
	PayoutTimeout time.Duration `env:"PAYOUT_TIMEOUT" envDefault:"10s"`

	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED"  envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the server configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the tags cannot express.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the %s backend", BackendSQLite)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s backend", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	for id, hash := range c.AdminPasswordHashes {
		if !c.isAdmin(id) {
			return fmt.Errorf("ADMIN_PASSWORD_HASHES names %q, which is not in ADMIN_IDS", id)
		}
		if !strings.HasPrefix(hash, "$2") {
			return fmt.Errorf("ADMIN_PASSWORD_HASHES entry for %q is not a bcrypt hash", id)
		}
	}
	return nil
}

func (c Config) isAdmin(id string) bool {
	for _, admin := range c.AdminIDs {
		if strings.TrimSpace(admin) == id {
			return true
		}
	}
	return false
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
