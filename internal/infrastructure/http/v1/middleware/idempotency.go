package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/idempotency"
	"buildledger/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	idempotencyKeyCtx   = "idempotency_key"
	idempotencyStoreCtx = "idempotency_store"
)

// Idempotency replays the stored response for a repeated X-Idempotency-Key
// on POST, PUT and PATCH. It must run after Auth so keys are scoped per user.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		userID := ""
		if a, ok := Actor(c); ok {
			userID = a.UserID().String()
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			abortWith(c, appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		operation := c.Request.Method + " " + c.FullPath()

		replay, err := store.AcquireKey(c.Request.Context(), key, userID, operation, requestHash)
		if err != nil {
			abortWith(c, fmt.Errorf("acquire idempotency key: %w", err))
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		c.Set(idempotencyKeyCtx, key)
		c.Set(idempotencyStoreCtx, store)

		c.Next()
	}
}

// CompleteIdempotency stores a successful response for replay. No-op when
// the request carries no key.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "complete idempotency key", "key", key, "error", err)
	}
}

// failIdempotency stores an error response so the key can be reused.
func failIdempotency(c *gin.Context, statusCode int, response any) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), key, statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "fail idempotency key", "key", key, "error", err)
	}
}

func idempotencyFrom(c *gin.Context) (string, idempotency.Store, bool) {
	key := c.GetString(idempotencyKeyCtx)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(idempotencyStoreCtx)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(idempotency.Store)
	return key, store, ok && store != nil
}
