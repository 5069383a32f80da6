// Package config loads the service configuration from the environment.
//
// An optional .env file is read first. Variables already set in the process
// environment win over the file, so the file only supplies defaults for
// local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port            string
	ShutdownTimeout time.Duration

	// Storage
	DBPath string

	// Logging
	LogLevel slog.Level

	// Rate limiting of /api. RateLimitRPS <= 0 disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// RateLimitEnabled reports whether the /api rate limiter should be installed.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing files are not an error; malformed values are.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading env file: %w", err)
	}

	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "data/templates.db"),
	}

	var err error

	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64); err != nil {
		return nil, fmt.Errorf("config: invalid RATE_LIMIT_RPS: %w", err)
	}

	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20")); err != nil {
		return nil, fmt.Errorf("config: invalid RATE_LIMIT_BURST: %w", err)
	}
	if cfg.RateLimitBurst < 1 {
		return nil, fmt.Errorf("config: RATE_LIMIT_BURST must be at least 1, got %d", cfg.RateLimitBurst)
	}

	secs, err := strconv.Atoi(getEnv("SHUTDOWN_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid SHUTDOWN_TIMEOUT_SECONDS: %w", err)
	}
	if secs < 0 {
		return nil, fmt.Errorf("config: SHUTDOWN_TIMEOUT_SECONDS must not be negative, got %d", secs)
	}
	cfg.ShutdownTimeout = time.Duration(secs) * time.Second

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
