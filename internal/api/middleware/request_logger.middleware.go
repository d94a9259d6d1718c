package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/pkg/logger"
)

// RequestLoggerMiddleware logs one structured line per request.
func RequestLoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, "user_id", userID)
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("request failed", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request handled", fields...)
		}
	}
}
