package httpapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/ratelimit"
)

// RateLimitMiddleware is the sole admission-control point: over-budget
// requests are rejected synchronously with a retry-after hint, there is no
// internal queue
func RateLimitMiddleware(limiter *ratelimit.SlidingWindow, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()

		decision := limiter.Allow(clientID)
		if !decision.Admitted {
			retrySeconds := int(math.Ceil(decision.RetryAfter.Seconds()))
			logger.Warn("Rate limit exceeded",
				zap.String("client", clientID),
				zap.Duration("retry_after", decision.RetryAfter))

			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, core.ConversionResult{
				Success:    false,
				Selections: []core.ConvertedSelection{},
				Warnings:   []string{},
				RequestID:  uuid.NewString(),
				ErrorCode:  core.CodeRateLimited,
				Message:    core.SafeMessage(core.CodeRateLimited),
			})
			return
		}

		c.Next()
	}
}
