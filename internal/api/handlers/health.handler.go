package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/pkg/cache"
	"github.com/callcoach/callcoach-core/pkg/logger"
	"github.com/callcoach/callcoach-core/pkg/version"
)

// ReadinessProbe is anything that can confirm an upstream dependency is
// reachable. The weaviate transport satisfies it.
type ReadinessProbe interface {
	Ready(ctx context.Context) error
}

type HealthHandler struct {
	cache  cache.Valkey
	vector ReadinessProbe // may be nil when semantic search is disabled
	logger logger.Logger
}

func NewHealthHandler(c cache.Valkey, vector ReadinessProbe, log logger.Logger) *HealthHandler {
	return &HealthHandler{cache: c, vector: vector, logger: log}
}

// GET /health - quick liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "callcoach-core",
		"version":   version.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GET /ready - readiness check
//
// The cache is required: sessions and rate limiting sit on it. The
// vector store only degrades search, so an unreachable weaviate reports
// "degraded" without failing readiness.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]interface{})
	ready := true

	probeKey := fmt.Sprintf("ready:%d", time.Now().UnixNano())
	if err := h.cache.Set(ctx, probeKey, []byte("1"), time.Second); err != nil {
		checks["cache"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		ready = false
	} else {
		checks["cache"] = map[string]interface{}{"status": "healthy"}
	}

	if h.vector != nil {
		if err := h.vector.Ready(ctx); err != nil {
			checks["weaviate"] = map[string]interface{}{"status": "degraded", "error": err.Error()}
		} else {
			checks["weaviate"] = map[string]interface{}{"status": "healthy"}
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !ready {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "callcoach-core",
		"version":   version.Version,
		"checks":    checks,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
