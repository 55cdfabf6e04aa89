package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "buildledger/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace stores the request's correlation ids in the request context and
// echoes them back as response headers.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		corr := appctx.ForRequest(c.GetHeader(HeaderRequestID), c.GetHeader(HeaderTraceID))
		c.Request = c.Request.WithContext(appctx.WithCorrelation(c.Request.Context(), corr))

		c.Header(HeaderRequestID, corr.RequestID)
		c.Header(HeaderTraceID, corr.TraceID)
		c.Next()
	}
}
