package middleware

import (
	"net/http"

	"github.com/fundmesh/transfer-service/pkg"
	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests once the distributed limiter runs dry.
func RateLimit(limiter *pkg.DistributedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, pkg.ErrorResponse{
				Code:      "APP_RATE_LIMITED",
				Message:   pkg.ErrRateLimitExceeded.Error(),
				Retryable: true,
			})
			return
		}
		c.Next()
	}
}
