// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/worktime and cmd/worktime-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"worktime/internal/archive"
	"worktime/internal/config"
	"worktime/internal/store"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitStore opens the durable record file at the given path.
// Returns the store or exits the process on failure.
func InitStore(logger *slog.Logger, path string) *store.Store {
	st, err := store.Open(path)
	if err != nil {
		logger.Error("Failed to open record store", "error", err, "path", path)
		os.Exit(1)
	}
	logger.Info("Record store opened",
		"path", path,
		"status", st.Status().String(),
		"records", st.Len())
	return st
}

// InitArchive opens the SQLite archive at the given path.
// Returns the archive or exits the process on failure.
func InitArchive(logger *slog.Logger, dbPath string) *archive.Archive {
	a, err := archive.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open archive database", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return a
}
