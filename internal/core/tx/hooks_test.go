package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommitOutsideTransactionRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestAfterCommitDeferredUntilRun(t *testing.T) {
	ctx, hooks := WithHooks(context.Background())

	var order []int
	AfterCommit(ctx, func(ctx context.Context) { order = append(order, 1) })
	AfterCommit(ctx, func(ctx context.Context) { order = append(order, 2) })

	assert.Empty(t, order)
	assert.Equal(t, 2, hooks.Len())

	hooks.Run(ctx)
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 0, hooks.Len())
}

func TestHooksRunWithDetachedContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, hooks := WithHooks(parent)

	var hookErr error
	nested := false
	AfterCommit(ctx, func(ctx context.Context) {
		hookErr = ctx.Err()
		// A hook registering another hook runs it inline.
		AfterCommit(ctx, func(context.Context) { nested = true })
	})

	cancel()
	hooks.Run(ctx)

	assert.NoError(t, hookErr)
	assert.True(t, nested)
}
