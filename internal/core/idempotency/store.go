// Package idempotency defines the replay store behind the HTTP
// X-Idempotency-Key contract.
package idempotency

import (
	"context"
	"time"
)

// Status of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Replay is the cached HTTP response for a completed key.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller owns the key, a Replay when
	// the operation already finished, or an error when the key is in flight or
	// reused for a different request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// StaleAfter is how long a pending key may sit before another request can
// reclaim it.
const StaleAfter = time.Minute

// NormalizeStatus defaults a missing status to 200.
func NormalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

// NormalizeContentType defaults a missing content type to JSON.
func NormalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
