package apptest

import (
	"context"
	"sync"

	"buildledger/internal/core/tx"
	"buildledger/internal/domain/notification"
)

// RecordingPublisher captures published notifications after commit.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*notification.Notification
}

func (p *RecordingPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	c := *n
	tx.AfterCommit(ctx, func(context.Context) {
		p.mu.Lock()
		p.events = append(p.events, &c)
		p.mu.Unlock()
	})
	return nil
}

// Published returns what has been delivered so far.
func (p *RecordingPublisher) Published() []*notification.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*notification.Notification(nil), p.events...)
}

// OfType filters Published by type.
func (p *RecordingPublisher) OfType(typ notification.Type) []*notification.Notification {
	var out []*notification.Notification
	for _, n := range p.Published() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
