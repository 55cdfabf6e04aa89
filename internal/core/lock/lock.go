// Package lock provides the contract for short-lived per-entity locks taken
// around multi-step workflows. The storage layer's conditional updates stay
// the authoritative guard; a lock only keeps contenders from doing wasted work.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"buildledger/internal/core/apperror"
)

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains locks by key.
type Locker interface {
	// Obtain returns apperror LOCK_NOT_OBTAINED when the key is held elsewhere
	// for longer than ctx allows.
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// Key builds a lock key for an entity.
func Key(entity string, id fmt.Stringer) string {
	return "lock:" + entity + ":" + id.String()
}

// Local is an in-process Locker. Used by the memory storage driver and tests.
type Local struct {
	mu    sync.Mutex
	held  map[string]chan struct{}
	retry time.Duration
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]chan struct{}), retry: 5 * time.Millisecond}
}

// Obtain waits until key is free, ctx is done, or ttl elapses.
func (l *Local) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	deadline := time.Now().Add(ttl)
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return &localLock{owner: l, key: key}, nil
		}
		l.mu.Unlock()

		if ttl > 0 && time.Now().After(deadline) {
			return nil, apperror.NewLockNotObtained(key)
		}

		select {
		case <-ctx.Done():
			return nil, apperror.NewLockNotObtained(key).WithCause(ctx.Err())
		case <-ch:
		case <-time.After(l.retry):
		}
	}
}

type localLock struct {
	owner *Local
	key   string
	once  sync.Once
}

func (k *localLock) Release(context.Context) error {
	k.once.Do(func() {
		k.owner.mu.Lock()
		if ch, ok := k.owner.held[k.key]; ok {
			close(ch)
			delete(k.owner.held, k.key)
		}
		k.owner.mu.Unlock()
	})
	return nil
}

// Noop never blocks. Useful where serialization is provided elsewhere.
type Noop struct{}

func (Noop) Obtain(context.Context, string, time.Duration) (Lock, error) { return noopLock{}, nil }

type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }
