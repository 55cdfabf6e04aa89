// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"buildledger/pkg/logger"
)

// Recovery turns a handler panic into INTERNAL_ERROR. http.ErrAbortHandler
// is re-raised so net/http can drop the connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"method", c.Request.Method,
				"route", c.FullPath(),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			if !c.Writer.Written() {
				render(c, fmt.Errorf("panic: %v", rec))
			}
		}()
		c.Next()
	}
}
