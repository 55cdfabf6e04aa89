package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"buildledger/internal/core/apperror"
	"buildledger/pkg/logger"
)

// RateLimit limits requests per client IP, or per user once authenticated.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if a, ok := Actor(c); ok {
			key = "user:" + a.UserID().String()
		}

		lc, err := l.Get(c.Request.Context(), key)
		if err != nil {
			// limiter store unavailable: let the request through
			logger.Warn(c.Request.Context(), "rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			logger.Warn(c.Request.Context(), "rate limit exceeded", "key", key, "limit", lc.Limit)
			abortWith(c, apperror.NewRateLimited(lc.Limit))
			return
		}
		c.Next()
	}
}
