package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/pkg/cache"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// RateLimiterMiddleware caps requests per caller per window using the
// cache's atomic counter. When the cache is unavailable the limiter
// fails open: coaching answers matter more than strict throttling.
func RateLimiterMiddleware(counters cache.Valkey, limit int, window time.Duration, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counters == nil || limit <= 0 {
			c.Next()
			return
		}

		caller := c.GetString("user_id")
		if caller == "" {
			caller = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%d", caller, time.Now().Unix()/int64(window.Seconds()))

		count, err := counters.Incr(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limiter counter unavailable", "error", err)
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-Rate-Limit-Limit", strconv.Itoa(limit))
		c.Header("X-Rate-Limit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"error":  "Rate limit exceeded. Please slow down.",
			})
			return
		}
		c.Next()
	}
}
