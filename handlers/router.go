package handlers

import (
	"log/slog"

	"upload-service/middleware"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds what the router needs to mount every endpoint
type RouterConfig struct {
	Files              *FileHandler
	Health             *HealthHandler
	Logger             *slog.Logger
	MaxMultipartMemory int64
}

// NewRouter builds the gin engine with middleware and all routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.Metrics(),
	)

	// Monitoring
	r.GET("/health", cfg.Health.Health)
	r.GET("/health/live", cfg.Health.HealthLive)
	r.GET("/health/ready", cfg.Health.HealthReady)
	r.GET("/metrics", cfg.Health.Metrics)

	// Uploads
	r.POST("/upload-file", cfg.Files.UploadFile)
	r.GET("/files", cfg.Files.ListFiles)
	r.GET("/files/search", cfg.Files.SearchFiles)

	return r
}
