// Package procurement records purchases and machinery rentals. Each is
// verified exactly once, and verification is what posts it to the site ledger.
package procurement

import (
	"context"
	"time"

	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// Status of a purchase or rental.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// PaymentMethod is how a vendor was paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentBank   PaymentMethod = "bank_transfer"
	PaymentCheque PaymentMethod = "cheque"
	PaymentCredit PaymentMethod = "credit"
)

// Payment describes settlement with the vendor.
type Payment struct {
	Method PaymentMethod `json:"method"`
	IsPaid bool          `json:"isPaid"`
}

// Item is one purchased line. Stocked items are received into site stock on
// verification.
type Item struct {
	Name      string         `json:"name"`
	Category  string         `json:"category"`
	Unit      string         `json:"unit"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice types.Money    `json:"unitPrice"`
	Amount    types.Money    `json:"amount"`
	Stocked   bool           `json:"stocked"`
}

// Purchase is a vendor purchase for a site.
type Purchase struct {
	ID          id.ID       `db:"id" json:"id"`
	Number      string      `db:"number" json:"number"`
	SiteID      id.ID       `db:"site_id" json:"siteId"`
	Vendor      string      `db:"vendor" json:"vendor"`
	Items       []Item      `db:"items" json:"items"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`
	Payment     Payment     `db:"payment" json:"payment"`
	Status      Status      `db:"status" json:"status"`
	CreatedBy   id.ID       `db:"created_by" json:"createdBy"`
	VerifiedBy  *id.ID      `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt  *time.Time  `db:"verified_at" json:"verifiedAt,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
}

// Rental is a machinery rental, optionally scoped to a site.
type Rental struct {
	ID         id.ID       `db:"id" json:"id"`
	Number     string      `db:"number" json:"number"`
	SiteID     *id.ID      `db:"site_id" json:"siteId,omitempty"`
	Machinery  string      `db:"machinery" json:"machinery"`
	Vendor     string      `db:"vendor" json:"vendor"`
	StartDate  time.Time   `db:"start_date" json:"startDate"`
	EndDate    *time.Time  `db:"end_date" json:"endDate,omitempty"`
	Amount     types.Money `db:"amount" json:"amount"`
	Status     Status      `db:"status" json:"status"`
	CreatedBy  id.ID       `db:"created_by" json:"createdBy"`
	VerifiedBy *id.ID      `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time  `db:"verified_at" json:"verifiedAt,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
}

// CreatePurchaseInput describes a new purchase. Item amounts are computed.
type CreatePurchaseInput struct {
	SiteID  id.ID
	Vendor  string
	Items   []Item
	Payment Payment
}

// CreateRentalInput describes a new rental.
type CreateRentalInput struct {
	SiteID    *id.ID
	Machinery string
	Vendor    string
	StartDate time.Time
	EndDate   *time.Time
	Amount    types.Money
}

// ListFilter narrows purchase and rental listings.
type ListFilter struct {
	SiteID *id.ID
	Status *Status
	Limit  int
	Offset int
}

// Verification is written by the verify-once update.
type Verification struct {
	By id.ID
	At time.Time
}

// Repository persists purchases and rentals.
type Repository interface {
	CreatePurchase(ctx context.Context, p *Purchase) error
	GetPurchase(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]*Purchase, error)
	// VerifyPurchase flips pending to verified; false if it was not pending.
	VerifyPurchase(ctx context.Context, purchaseID id.ID, v Verification) (bool, error)

	CreateRental(ctx context.Context, r *Rental) error
	GetRental(ctx context.Context, rentalID id.ID) (*Rental, error)
	ListRentals(ctx context.Context, filter ListFilter) ([]*Rental, error)
	VerifyRental(ctx context.Context, rentalID id.ID, v Verification) (bool, error)
}
