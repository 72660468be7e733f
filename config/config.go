/*
Package config loads server configuration from the environment.

A .env file in the working directory is loaded first when present
(development convenience); real environment variables win over it.

VARIABLES:
  PORT       HTTP server port (default 8080)
  DB_PATH    SQLite database path (default stock.db, ":memory:" supported)
  LOG_LEVEL  zap level: debug, info, warn, error (default info)
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config is the resolved server configuration.
type Config struct {
	Port     int
	DBPath   string
	LogLevel zapcore.Level
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     8080,
		DBPath:   "stock.db",
		LogLevel: zapcore.InfoLevel,
	}

	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := zapcore.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}
