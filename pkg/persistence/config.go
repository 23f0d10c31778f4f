package persistence

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the Postgres connection and pool settings for a
// PostgresStore (SPEC_FULL.md's domain-stack assignment for
// `jackc/pgx/v5` + the `stdlib` driver).
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv reads WEAVE_DB_* environment variables, applying
// production-ready defaults for anything unset, and validates the
// result.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("WEAVE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid WEAVE_DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("WEAVE_DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("WEAVE_DB_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("WEAVE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid WEAVE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("WEAVE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid WEAVE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("WEAVE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("WEAVE_DB_USER", "weave"),
		Password:        os.Getenv("WEAVE_DB_PASSWORD"),
		Database:        getEnvOrDefault("WEAVE_DB_NAME", "weave"),
		SSLMode:         getEnvOrDefault("WEAVE_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg's pool settings are internally
// consistent.
func (c Config) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("WEAVE_DB_MAX_IDLE_CONNS (%d) cannot exceed WEAVE_DB_MAX_OPEN_CONNS (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("WEAVE_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("WEAVE_DB_MAX_IDLE_CONNS cannot be negative")
	}
	return nil
}

// DSN renders cfg as a libpq-style connection string accepted by the
// pgx stdlib driver.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
