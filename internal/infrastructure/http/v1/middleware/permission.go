package middleware

import (
	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
)

// RequireAction rejects requests whose actor may not perform action. Write
// operations are authorized again by the services; this guards reads, which
// take no actor.
func RequireAction(action actor.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := Actor(c)
		if !ok {
			abortWith(c, apperror.NewUnauthenticated("authentication required"))
			return
		}
		if err := a.Authorize(action); err != nil {
			abortWith(c, err)
			return
		}
		c.Next()
	}
}
