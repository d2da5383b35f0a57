// api/middleware/rate_limiter.go

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

// LimitFunc reports whether one more request for key fits in the window.
// db.RateLimit is the production implementation.
type LimitFunc func(ctx context.Context, key string, limit int, per time.Duration) (bool, error)

func RateLimiter(limiter LimitFunc, limit int, per time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		allowed, err := limiter(c.Request.Context(), key, limit, per)
		if err != nil {
			logger.Error("Rate limiting failed", zap.Error(err), zap.String("ip", key))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting failed"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
