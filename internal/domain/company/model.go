// Package company keeps the company-wide cash balance. It is posted to
// explicitly and is never driven by site postings.
package company

import (
	"context"
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// EntryType is the direction of a company posting.
type EntryType string

const (
	TypeIncoming    EntryType = "incoming"
	TypeExpenditure EntryType = "expenditure"
)

// Sign returns +1 for incoming and -1 for expenditure.
func (t EntryType) Sign() int64 {
	switch t {
	case TypeIncoming:
		return 1
	case TypeExpenditure:
		return -1
	}
	return 0
}

// Account is the singleton company account.
type Account struct {
	ID          id.ID       `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// Entry is one company posting.
type Entry struct {
	ID          id.ID       `db:"id" json:"id"`
	Seq         int64       `db:"seq" json:"seq"`
	Type        EntryType   `db:"type" json:"type"`
	Amount      types.Money `db:"amount" json:"amount"`
	SiteID      *id.ID      `db:"site_id" json:"siteId,omitempty"`
	Description string      `db:"description" json:"description"`
	TotalAfter  types.Money `db:"total_after" json:"totalAfter"`
	PostedBy    id.ID       `db:"posted_by" json:"postedBy"`
	PostedAt    time.Time   `db:"posted_at" json:"postedAt"`
}

// Signed returns the effect on the company total.
func (e *Entry) Signed() types.Money {
	return e.Amount.Mul(types.NewMoney(e.Type.Sign()))
}

// PostInput describes a company posting.
type PostInput struct {
	Amount      types.Money
	Type        EntryType
	SiteID      *id.ID
	Description string
}

// Reconciliation compares the cached total with the log.
type Reconciliation struct {
	Cached   types.Money `json:"cached"`
	Computed types.Money `json:"computed"`
	Drift    types.Money `json:"drift"`
	Repaired bool        `json:"repaired"`
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	SiteID *id.ID
	Limit  int
	Offset int
}

// Repository persists the account and its log.
type Repository interface {
	// Get returns the account, creating it with a zero total if missing.
	Get(ctx context.Context) (*Account, error)
	// GetForUpdate is Get with the account row locked until the unit ends.
	GetForUpdate(ctx context.Context) (*Account, error)
	// Adjust atomically adds delta and returns the new total.
	Adjust(ctx context.Context, delta types.Money) (types.Money, error)
	SetTotal(ctx context.Context, total types.Money) error
	// AppendEntry assigns the next seq and stores the entry.
	AppendEntry(ctx context.Context, e *Entry) error
	ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error)
	SumEntries(ctx context.Context) (types.Money, error)
}
