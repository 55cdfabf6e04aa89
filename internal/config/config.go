// Package config loads process configuration from the environment, with an
// optional .env file underneath it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	StorageDriver      string
	DatabaseURL        string
	DBMaxConns         int32
	DBStatementTimeout time.Duration
	MigrationsPath     string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	JWTSecret string
	JWTIssuer string

	NotifyTimeout   time.Duration
	BudgetAlertRule string

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration
	RateLimit          string
	CORSOrigins        []string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	ReconcileInterval  time.Duration
}

// Development reports whether the process runs in development mode.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("MIGRATIONS_PATH", "migrations")
	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "buildledger")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("BUDGET_ALERT_RULE", "")
	v.SetDefault("IDEMPOTENCY_ENABLED", true)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("RATE_LIMIT", "100-S")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("RECONCILE_INTERVAL", "1h")
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:                strings.ToLower(v.GetString("APP_ENV")),
		Port:               v.GetString("APP_PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		StorageDriver:      strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		DBMaxConns:         v.GetInt32("DB_MAX_CONNS"),
		DBStatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		RedisAddress:       v.GetString("REDIS_ADDRESS"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		LockTTL:            v.GetDuration("LOCK_TTL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		NotifyTimeout:      v.GetDuration("NOTIFY_TIMEOUT"),
		BudgetAlertRule:    v.GetString("BUDGET_ALERT_RULE"),
		IdempotencyEnabled: v.GetBool("IDEMPOTENCY_ENABLED"),
		IdempotencyTTL:     v.GetDuration("IDEMPOTENCY_TTL"),
		RateLimit:          v.GetString("RATE_LIMIT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:    v.GetInt("OUTBOX_BATCH_SIZE"),
		ReconcileInterval:  v.GetDuration("RECONCILE_INTERVAL"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for storage driver %q", c.StorageDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		if !c.Development() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 25
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.OutboxBatchSize <= 0 {
		c.OutboxBatchSize = 100
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
