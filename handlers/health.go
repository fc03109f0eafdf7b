package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName = "upload-service"
	statusOK    = "ok"
	statusFail  = "fail"
)

// ReadinessChecker reports the state of a dependency
type ReadinessChecker interface {
	// CheckReady returns a status ("ok" or "fail") and a message
	CheckReady(ctx context.Context) (status, message string)
}

// HealthHandler serves liveness, readiness and metrics endpoints
type HealthHandler struct {
	pgChecker   ReadinessChecker
	promHandler http.Handler
}

// NewHealthHandler creates a health handler. A nil pgChecker makes readiness fail.
func NewHealthHandler(pgChecker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		pgChecker:   pgChecker,
		promHandler: promhttp.Handler(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// HealthLive handles GET /health/live. 200 while the process is up.
func (h *HealthHandler) HealthLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    statusOK,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthReady handles GET /health/ready. 503 when PostgreSQL is unreachable.
func (h *HealthHandler) HealthReady(c *gin.Context) {
	pgStatus, pgMessage := statusFail, "not initialized"
	if h.pgChecker != nil {
		pgStatus, pgMessage = h.pgChecker.CheckReady(c.Request.Context())
	}

	code := http.StatusOK
	if pgStatus != statusOK {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    pgStatus,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"postgresql": gin.H{"status": pgStatus, "message": pgMessage},
		},
	})
}

// Metrics handles GET /metrics
func (h *HealthHandler) Metrics(c *gin.Context) {
	h.promHandler.ServeHTTP(c.Writer, c.Request)
}
