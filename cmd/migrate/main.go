package main

import (
	"log/slog"
	"os"

	"upload-service/config"
	"upload-service/database"
)

// Applies the uploaded_files schema without starting the server
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
