package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"buildledger/pkg/logger"
)

// Logger makes log the request's context logger, so service code logging
// through logger.Info(ctx, ...) inherits the request fields, and writes one
// access line per request. Probes under /health are not logged.
func Logger(log *logger.Logger) gin.HandlerFunc {
	access := log.WithComponent("http")
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))
		if strings.HasPrefix(c.Request.URL.Path, "/health/") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.Last().Err)
		}

		l := access.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Errorw("request", kv...)
		case status >= 400:
			l.Warnw("request", kv...)
		default:
			l.Infow("request", kv...)
		}
	}
}
