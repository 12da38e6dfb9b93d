package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/calendar"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "DB_PATH", "COUNTRY", "MAX_FORECAST_MONTHS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "./data/cashflow.db", cfg.DBPath)
	assert.Equal(t, calendar.Denmark, cfg.Country)
	assert.Equal(t, 60, cfg.MaxForecastMonths)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	// GIVEN: environment overrides
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("MAX_FORECAST_MONTHS", "24")
	t.Setenv("LOG_LEVEL", "debug")

	// WHEN: flags are passed as well
	cfg, err := Load([]string{"-port", "9100", "-store", "memory"})
	require.NoError(t, err)

	// THEN: flags win, env fills the rest
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	assert.Equal(t, 24, cfg.MaxForecastMonths)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("MAX_FORECAST_MONTHS", "lots")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.MaxForecastMonths)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, err := Load([]string{"-verbose"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "8080",
			Backend:           BackendSQLite,
			DBPath:            filepath.Join(t.TempDir(), "db", "cashflow.db"),
			Country:           calendar.Denmark,
			MaxForecastMonths: 12,
			LogLevel:          "info",
		}
	}

	t.Run("valid creates db dir", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
		_, err := os.Stat(filepath.Dir(cfg.DBPath))
		assert.NoError(t, err)
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "http"
		cfg.Backend = "postgres"
		cfg.Country = "XX"
		cfg.MaxForecastMonths = 0
		cfg.LogLevel = "loud"

		err := cfg.Validate()
		require.Error(t, err)
		for _, want := range []string{"invalid port", "invalid store backend", "unsupported country", "MAX_FORECAST_MONTHS", "invalid log level"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("port range", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "70000"
		assert.ErrorContains(t, cfg.Validate(), "between 1 and 65535")
	})

	t.Run("memory backend ignores db path", func(t *testing.T) {
		cfg := valid()
		cfg.Backend = BackendMemory
		cfg.DBPath = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestLogger_Level(t *testing.T) {
	cfg := &Config{LogLevel: "warn"}
	logger := cfg.Logger(os.Stderr)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
