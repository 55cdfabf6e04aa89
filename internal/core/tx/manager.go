// Package tx defines the unit-of-work contract shared by the domain services.
// The postgres driver maps a unit to one database transaction; the memory
// driver maps it to a locked section with compensating undo steps.
package tx

import (
	"context"
)

// Manager runs units of work. A unit applies fully or not at all, and a
// nested call joins the unit already carried by ctx.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SnapshotManager is a Manager that can also run a read-only unit in which
// every read observes the same committed state.
type SnapshotManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Snapshot runs fn read-only when m supports it and as a regular unit
// otherwise.
func Snapshot(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if sm, ok := m.(SnapshotManager); ok {
		return sm.ReadOnly(ctx, fn)
	}
	return m.RunInTransaction(ctx, fn)
}
