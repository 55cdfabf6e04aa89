package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
)

const actorKey = "actor"

// JWTValidator validates a bearer token and returns its actor.
type JWTValidator interface {
	ValidateToken(tokenString string) (actor.Actor, error)
}

// Auth requires a valid bearer token and stores the actor.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthenticated(c, "invalid authorization header format")
			return
		}

		a, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewUnauthenticated("invalid token").WithCause(err)
			}
			abortWith(c, err)
			return
		}

		c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), a))
		c.Set(actorKey, a)
		c.Set("user_id", a.UserID().String())

		c.Next()
	}
}

// Actor returns the authenticated actor of the request.
func Actor(c *gin.Context) (actor.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return actor.Actor{}, false
	}
	a, ok := v.(actor.Actor)
	return a, ok
}

func abortUnauthenticated(c *gin.Context, message string) {
	abortWith(c, apperror.NewUnauthenticated(message))
}
