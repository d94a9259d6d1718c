package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/pkg/logger"
)

// ErrorMiddleware recovers panics from downstream handlers and returns
// a well-formed JSON error. Internal details stay in the log.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("request handler panicked",
					"panic", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status": "error",
					"error":  "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
