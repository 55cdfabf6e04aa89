package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/lock"
)

// Locker implements lock.Locker on top of redislock.
type Locker struct {
	client  *redislock.Client
	backoff time.Duration
}

// NewLocker creates a Locker over rdb.
func NewLocker(rdb goredis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb), backoff: 25 * time.Millisecond}
}

var _ lock.Locker = (*Locker)(nil)

// Obtain retries until the key is free, ttl elapses or ctx is done.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (lock.Lock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	held, err := l.client.Obtain(waitCtx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	switch {
	case err == nil:
		return &redisLock{held: held}, nil
	case errors.Is(err, redislock.ErrNotObtained),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return nil, apperror.NewLockNotObtained(key).WithCause(err)
	default:
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
}

type redisLock struct {
	held *redislock.Lock
}

// Release drops the lock. A lock that already expired is not an error.
func (k *redisLock) Release(ctx context.Context) error {
	err := k.held.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
