package tx

import (
	"context"
	"sync"
)

// Hooks collects callbacks that must only run once the outermost
// transaction has committed. A rolled-back unit discards them.
type Hooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

type hooksKey struct{}

// WithHooks attaches a fresh hook list to ctx. Transaction managers call it
// when they open an outermost transaction.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit registers fn to run after the surrounding transaction commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok && h != nil {
		h.mu.Lock()
		h.fns = append(h.fns, fn)
		h.mu.Unlock()
		return
	}
	fn(ctx)
}

// Run executes registered hooks in registration order. The context passed to
// hooks is detached from the request's cancellation and from the hook list.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	detached := context.WithValue(context.WithoutCancel(ctx), hooksKey{}, (*Hooks)(nil))
	for _, fn := range fns {
		fn(detached)
	}
}

// Len reports the number of pending hooks.
func (h *Hooks) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fns)
}
