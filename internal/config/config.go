// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mmynk/splitledger/internal/calculator"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverGorm   = "gorm"
)

const devJWTSecret = "splitledger-dev-secret-change-me"

// Config holds every setting the server reads at startup.
type Config struct {
	Env  string
	Port int

	DBDriver string
	DBPath   string

	JWTSecret string
	JWTTTL    time.Duration

	// RedisAddr enables the distributed lock when set.
	RedisAddr     string
	RedisPassword string

	LogLevel  string
	LogFormat string

	SettlementStrategy calculator.Strategy
	CORSOrigins        []string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsingDevSecret reports whether tokens are signed with the built-in development secret.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

// Load reads the given env files (".env" by default, skipped when missing)
// and then the process environment. Variables already set in the
// environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		DBPath:        getEnv("DB_PATH", "./data/splitledger.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
	}

	var errs []error

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", os.Getenv("PORT")))
	}
	cfg.Port = port

	switch cfg.DBDriver {
	case DriverSQLite, DriverGorm:
	default:
		errs = append(errs, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", cfg.DBDriver, DriverSQLite, DriverGorm))
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		cfg.JWTSecret = devJWTSecret
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil || ttl <= 0 {
		errs = append(errs, fmt.Errorf("invalid JWT_TTL %q", os.Getenv("JWT_TTL")))
	}
	cfg.JWTTTL = ttl

	strategy, err := calculator.ParseStrategy(os.Getenv("SETTLEMENT_STRATEGY"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid SETTLEMENT_STRATEGY: %w", err))
	}
	cfg.SettlementStrategy = strategy

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
