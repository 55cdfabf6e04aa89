package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/core/apperror"
)

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	key := Key("transfer", uuid.New())

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lk, err := l.Obtain(ctx, key, time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, lk.Release(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocalTimeout(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	held, err := l.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)
	defer held.Release(ctx)

	_, err = l.Obtain(ctx, "k", 20*time.Millisecond)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeLockNotObtained, appErr.Code)
}

func TestReleaseTwice(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()
	lk, err := l.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, lk.Release(ctx))
	require.NoError(t, lk.Release(ctx))

	_, err = l.Obtain(ctx, "k", time.Second)
	assert.NoError(t, err)
}
