// Package contractor tracks what the company owes each contractor per site.
//
// Balance convention: the balance is the amount owed to the contractor.
// An advance reduces it, an expense or additional payment increases it.
// Amounts are stored positive; TxType.Sign applies the direction.
package contractor

import (
	"context"
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// TxType classifies a contractor transaction.
type TxType string

const (
	TypeAdvance           TxType = "advance"
	TypeExpense           TxType = "expense"
	TypeAdditionalPayment TxType = "additional_payment"
)

// Sign is the direction applied to the balance, 0 for unknown types.
func (t TxType) Sign() int64 {
	switch t {
	case TypeAdvance:
		return -1
	case TypeExpense, TypeAdditionalPayment:
		return 1
	}
	return 0
}

// Signed applies the posting rule to a positive amount.
func (t TxType) Signed(amount types.Money) types.Money {
	return amount.Mul(types.NewMoney(t.Sign()))
}

// Contractor is an external party working on sites.
type Contractor struct {
	ID          id.ID         `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Phone       string        `db:"phone" json:"phone"`
	Specialty   string        `db:"specialty" json:"specialty"`
	Assignments []*Assignment `db:"-" json:"assignments"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
}

// Assignment links a contractor to a site and caches the balance there.
type Assignment struct {
	ContractorID id.ID       `db:"contractor_id" json:"contractorId"`
	SiteID       id.ID       `db:"site_id" json:"siteId"`
	Balance      types.Money `db:"balance" json:"balance"`
	AssignedAt   time.Time   `db:"assigned_at" json:"assignedAt"`
}

// Transaction is one posting against an assignment.
type Transaction struct {
	ID           id.ID       `db:"id" json:"id"`
	ContractorID id.ID       `db:"contractor_id" json:"contractorId"`
	SiteID       id.ID       `db:"site_id" json:"siteId"`
	Type         TxType      `db:"type" json:"type"`
	Amount       types.Money `db:"amount" json:"amount"`
	Description  string      `db:"description" json:"description"`
	BalanceAfter types.Money `db:"balance_after" json:"balanceAfter"`
	PostedBy     id.ID       `db:"posted_by" json:"postedBy"`
	PostedAt     time.Time   `db:"posted_at" json:"postedAt"`
}

// CreateInput describes a new contractor.
type CreateInput struct {
	Name      string
	Phone     string
	Specialty string
}

// PostInput describes one contractor transaction.
type PostInput struct {
	ContractorID id.ID
	SiteID       id.ID
	Type         TxType
	Amount       types.Money
	Description  string
}

// Reconciliation compares the cached and recomputed balance.
type Reconciliation struct {
	ContractorID id.ID       `json:"contractorId"`
	SiteID       id.ID       `json:"siteId"`
	Cached       types.Money `json:"cached"`
	Computed     types.Money `json:"computed"`
	Drift        types.Money `json:"drift"`
	Repaired     bool        `json:"repaired"`
}

// ListFilter narrows contractor listings.
type ListFilter struct {
	SiteID *id.ID
	Search string
	Limit  int
	Offset int
}

// Repository persists contractors, assignments and transactions.
type Repository interface {
	Create(ctx context.Context, c *Contractor) error
	GetByID(ctx context.Context, contractorID id.ID) (*Contractor, error)
	List(ctx context.Context, filter ListFilter) ([]*Contractor, error)

	ListAssignments(ctx context.Context, contractorID id.ID) ([]*Assignment, error)
	// ListAllAssignments pages through every assignment (reconciliation).
	ListAllAssignments(ctx context.Context, limit, offset int) ([]*Assignment, error)
	// GetAssignmentForUpdate returns the assignment with its row locked, or
	// NotFound when the contractor is not assigned to the site.
	GetAssignmentForUpdate(ctx context.Context, contractorID, siteID id.ID) (*Assignment, error)
	// AddAssignment inserts the pair if absent and reports whether it did.
	AddAssignment(ctx context.Context, a *Assignment) (bool, error)
	// AdjustBalance atomically adds delta and returns the new balance.
	AdjustBalance(ctx context.Context, contractorID, siteID id.ID, delta types.Money) (types.Money, error)
	SetBalance(ctx context.Context, contractorID, siteID id.ID, balance types.Money) error

	AppendTransaction(ctx context.Context, t *Transaction) error
	ListTransactions(ctx context.Context, contractorID, siteID id.ID) ([]*Transaction, error)
}
