package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"upload-service/config"
	"upload-service/database"
	"upload-service/handlers"
	"upload-service/repository"
	"upload-service/service"
	"upload-service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Apply schema migrations
	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	// Initialize database connections
	db, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize storage
	fileStorage, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("Storage initialized",
		slog.String("type", string(cfg.StorageType)),
		slog.String("bucket", cfg.S3Bucket),
	)

	// Initialize services
	fileService := service.NewFileService(
		service.WithSessionFactory(repository.NewPgSessionFactory(db)),
		service.WithFiles(repository.NewFileRepository(db)),
		service.WithStorage(fileStorage),
		service.WithBucket(cfg.S3Bucket),
		service.WithLogger(logger),
	)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.RouterConfig{
		Files:              handlers.NewFileHandler(fileService),
		Health:             handlers.NewHealthHandler(database.NewReadinessChecker(db)),
		Logger:             logger,
		MaxMultipartMemory: cfg.MaxMultipartMemory,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
