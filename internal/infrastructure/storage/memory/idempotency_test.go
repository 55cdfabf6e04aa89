package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/apperror"
)

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)

	replay, err := s.AcquireKey(ctx, "k1", "u1", "POST /sites", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = s.AcquireKey(ctx, "k1", "u1", "POST /sites", "h1")
	assert.Equal(t, apperror.CodeIdempotency, apperror.Code(err))

	_, err = s.AcquireKey(ctx, "k1", "u1", "POST /sites", "other")
	assert.Equal(t, apperror.CodeIdempotency, apperror.Code(err))

	require.NoError(t, s.CompleteKey(ctx, "k1", 201, "", map[string]string{"id": "x"}))
	replay, err = s.AcquireKey(ctx, "k1", "u1", "POST /sites", "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"id":"x"}`, string(replay.Body))
}

func TestIdempotencyStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.AcquireKey(ctx, "k", "u", "op", "h")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	n, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	replay, err := s.AcquireKey(ctx, "k", "u", "op", "h")
	require.NoError(t, err)
	assert.Nil(t, replay)
}
