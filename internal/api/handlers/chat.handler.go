package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/internal/api/middleware"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// ChatPipeline is the orchestrator as seen by the transport layer.
type ChatPipeline interface {
	HandleMessage(ctx context.Context, identity *models.CallerIdentity, req *models.ChatRequest) *models.ChatResponse
}

type ChatHandler struct {
	pipeline ChatPipeline
	logger   logger.Logger
}

func NewChatHandler(pipeline ChatPipeline, log logger.Logger) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, logger: log}
}

// POST /api/v1/chat
//
// The pipeline owns its own error envelope: once the request binds and
// the caller is known, this always answers 200 with a ChatResponse,
// failure or not. HTTP status codes are reserved for transport problems.
func (h *ChatHandler) HandleMessage(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Authentication required",
		})
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Invalid request body: a non-empty 'message' field is required",
		})
		return
	}

	resp := h.pipeline.HandleMessage(c.Request.Context(), identity, &req)
	c.JSON(http.StatusOK, resp)
}
