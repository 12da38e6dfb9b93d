// Package config loads server settings from .env, the environment and
// command-line flags, in that order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/warp/cashflow-engine/calendar"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP server
	Port string

	// Storage
	Backend string
	DBPath  string

	// Engine
	Country           calendar.Country
	MaxForecastMonths int

	// Logging
	LogLevel string
}

// Load reads an optional .env file, then the environment, then args.
// A missing .env is not an error.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Backend:           getEnv("STORE_BACKEND", BackendSQLite),
		DBPath:            getEnv("DB_PATH", "./data/cashflow.db"),
		Country:           calendar.Country(getEnv("COUNTRY", string(calendar.Denmark))),
		MaxForecastMonths: getEnvInt("MAX_FORECAST_MONTHS", 60),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	fsFlags := flag.NewFlagSet("server", flag.ContinueOnError)
	fsFlags.SetOutput(io.Discard)
	fsFlags.StringVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fsFlags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fsFlags.StringVar(&cfg.Backend, "store", cfg.Backend, "storage backend (sqlite, memory)")
	if err := fsFlags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	return cfg, nil
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			problems = append(problems, "database path cannot be empty when using sqlite backend")
		} else if c.DBPath != ":memory:" {
			dir := filepath.Dir(c.DBPath)
			if dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be sqlite or memory", c.Backend))
	}

	if !isSupported(c.Country) {
		problems = append(problems, fmt.Sprintf("unsupported country '%s': must be one of %v", c.Country, calendar.Countries()))
	}

	if c.MaxForecastMonths < 1 {
		problems = append(problems, fmt.Sprintf("invalid MAX_FORECAST_MONTHS %d: must be at least 1", c.MaxForecastMonths))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Logger builds the process logger: text handler at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be debug, info, warn or error", s)
	}
	return level, nil
}

func isSupported(c calendar.Country) bool {
	for _, known := range calendar.Countries() {
		if known == c {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
