package middleware

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/apperror"
	appctx "buildledger/internal/core/context"
	"buildledger/pkg/logger"
)

// ErrorHandler renders the last error recorded by a handler.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		render(c, c.Errors.Last().Err)
	}
}

// render writes err as {"code", "message", "details"} and releases a held
// idempotency key. Causes are logged, never returned.
func render(c *gin.Context, err error) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		appErr = apperror.NewInternal(err)
	}
	status := apperror.StatusOf(appErr)
	kind := apperror.KindOf(appErr)

	if kind == apperror.KindOperational {
		logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
		appErr = appErr.WithDetail("request_id", appctx.RequestID(ctx))
	} else if appErr.Err != nil {
		logger.Warn(ctx, "request rejected", "code", appErr.Code, "kind", kind, "cause", appErr.Err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	}
	failIdempotency(c, status, body)
	c.AbortWithStatusJSON(status, body)
}

// abortWith records err and stops the chain; ErrorHandler renders it.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
