package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/internal/api/middleware"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// SearchReindexer replays stored calls into the search indexes.
type SearchReindexer interface {
	ReindexAll(ctx context.Context, since time.Time) (int, error)
}

// AdminHandler serves operational endpoints restricted to admins.
type AdminHandler struct {
	indexer SearchReindexer
	logger  logger.Logger
}

func NewAdminHandler(indexer SearchReindexer, log logger.Logger) *AdminHandler {
	return &AdminHandler{indexer: indexer, logger: log}
}

// POST /api/v1/admin/reindex?days=90
//
// Rebuilds the search indexes from the call store. days bounds the
// replay window; absent or zero replays everything.
func (h *AdminHandler) Reindex(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Authentication required",
		})
		return
	}
	if identity.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "Administrator access required",
		})
		return
	}
	if h.indexer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "Search indexing is not configured",
		})
		return
	}

	var since time.Time
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			since = time.Now().UTC().AddDate(0, 0, -parsed)
		}
	}

	indexed, err := h.indexer.ReindexAll(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("search reindex failed", "user_id", identity.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Reindex failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"calls_indexed": indexed,
	})
}
