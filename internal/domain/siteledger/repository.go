package siteledger

import (
	"context"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// Repository persists sites and their entry logs.
type Repository interface {
	Create(ctx context.Context, site *Site) error
	GetByID(ctx context.Context, siteID id.ID) (*Site, error)
	// GetForUpdate reads the site and holds its row lock until the unit ends.
	GetForUpdate(ctx context.Context, siteID id.ID) (*Site, error)
	List(ctx context.Context, filter ListFilter) ([]*Site, error)

	// UpdateStatus changes status only if it still equals from.
	UpdateStatus(ctx context.Context, siteID id.ID, from, to Status) (bool, error)

	// AddExpenses atomically increments Site.expenses and returns the new total.
	AddExpenses(ctx context.Context, siteID id.ID, amount types.Money) (types.Money, error)
	// SetExpenses overwrites the cached total (reconciliation repair).
	SetExpenses(ctx context.Context, siteID id.ID, expenses types.Money) error

	// AppendEntry assigns the next per-site seq and stores the entry.
	AppendEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, siteID id.ID, filter EntryFilter) ([]*Entry, error)
	// SumEntries returns the signed sum of the log.
	SumEntries(ctx context.Context, siteID id.ID) (types.Money, error)
}
