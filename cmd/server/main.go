/*
main.go - Application entry point

PURPOSE:
  Starts the cash-flow engine HTTP server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags) and validate it
  2. Build the logger
  3. Open the store (SQLite or in-memory)
  4. Create the shared holiday calendar and the API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (env PORT, default: 8080)
  -db      SQLite database path (env DB_PATH, default: ./data/cashflow.db)
           Use ":memory:" for in-memory database
  -store   Storage backend: sqlite or memory (env STORE_BACKEND)

ENVIRONMENT:
  COUNTRY              default country for new budgets (DK)
  LOG_LEVEL            debug, info, warn, error
  MAX_FORECAST_MONTHS  upper bound for ?months= (60)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/cashflow-engine/api"
	"github.com/warp/cashflow-engine/budget"
	"github.com/warp/cashflow-engine/budget/store"
	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/config"
	"github.com/warp/cashflow-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize store
	var st budget.Store
	switch cfg.Backend {
	case config.BackendMemory:
		st = store.NewMemory()
		logger.Warn("Using in-memory store; data is lost on exit")
	default:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err, "path", cfg.DBPath)
			os.Exit(1)
		}
		defer db.Close()
		st = db
	}

	// Initialize handler
	handler := api.NewHandler(st, calendar.New(), logger)
	handler.DefaultCountry = cfg.Country
	handler.MaxForecastMonths = cfg.MaxForecastMonths

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			"addr", "http://localhost:"+cfg.Port,
			"store", cfg.Backend,
			"country", cfg.Country)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server stopped")
}
