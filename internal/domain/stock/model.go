// Package stock tracks material quantities per site, the movement log that
// explains them and the request/decide workflow for moving stock between
// sites.
package stock

import (
	"context"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/types"
)

// Identity is what makes two stock lines the same material.
type Identity struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// Stock is a quantity of one material at one site. A nil SiteID is the
// company pool.
type Stock struct {
	ID        id.ID          `db:"id" json:"id"`
	SiteID    *id.ID         `db:"site_id" json:"siteId,omitempty"`
	Name      string         `db:"name" json:"name"`
	Category  string         `db:"category" json:"category"`
	Unit      string         `db:"unit" json:"unit"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Identity returns the material identity of the line.
func (s *Stock) Identity() Identity {
	return Identity{Name: s.Name, Category: s.Category, Unit: s.Unit}
}

// QuantityOverflow is returned when crediting qty would push a line past
// the largest storable quantity.
func QuantityOverflow(ident Identity, qty types.Quantity) error {
	return apperror.NewFieldValidation("quantity", "quantity exceeds the storable range for this line").
		WithDetail("name", ident.Name).
		WithDetail("requested", qty.String())
}

// MovementKind classifies a quantity change.
type MovementKind string

const (
	MovementReceipt     MovementKind = "receipt"
	MovementConsumption MovementKind = "consumption"
	MovementTransferOut MovementKind = "transfer_out"
	MovementTransferIn  MovementKind = "transfer_in"
)

// Movement is one entry of the append-only movement log. Quantity is always
// positive; Kind gives the direction.
type Movement struct {
	ID         id.ID          `db:"id" json:"id"`
	StockID    id.ID          `db:"stock_id" json:"stockId"`
	SiteID     *id.ID         `db:"site_id" json:"siteId,omitempty"`
	Kind       MovementKind   `db:"kind" json:"kind"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	TransferID *id.ID         `db:"transfer_id" json:"transferId,omitempty"`
	RelatedID  *id.ID         `db:"related_id" json:"relatedId,omitempty"`
	ActorID    id.ID          `db:"actor_id" json:"actorId"`
	Note       string         `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// TransferStatus is the state of a transfer. Requested is the only
// non-terminal state.
type TransferStatus string

const (
	TransferRequested TransferStatus = "requested"
	TransferApproved  TransferStatus = "approved"
	TransferRejected  TransferStatus = "rejected"
)

// Decision is the outcome chosen by the decider.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status maps a decision to the terminal transfer status.
func (d Decision) Status() (TransferStatus, bool) {
	switch d {
	case DecisionApprove:
		return TransferApproved, true
	case DecisionReject:
		return TransferRejected, true
	}
	return "", false
}

// Transfer is a request to move quantity of a stock line to another site.
type Transfer struct {
	ID           id.ID          `db:"id" json:"id"`
	Number       string         `db:"number" json:"number"`
	StockID      id.ID          `db:"stock_id" json:"stockId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	FromSiteID   *id.ID         `db:"from_site_id" json:"fromSiteId,omitempty"`
	ToSiteID     id.ID          `db:"to_site_id" json:"toSiteId"`
	Status       TransferStatus `db:"status" json:"status"`
	RequestedBy  id.ID          `db:"requested_by" json:"requestedBy"`
	DecidedBy    *id.ID         `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt    *time.Time     `db:"decided_at" json:"decidedAt,omitempty"`
	DestStockID  *id.ID         `db:"dest_stock_id" json:"destStockId,omitempty"`
	Note         string         `db:"note" json:"note,omitempty"`
	DecisionNote string         `db:"decision_note" json:"decisionNote,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// ReceiveInput credits material at a site or in the pool.
type ReceiveInput struct {
	SiteID    *id.ID
	Name      string
	Category  string
	Unit      string
	Quantity  types.Quantity
	UnitCost  types.Money
	RelatedID *id.ID
	Note      string
}

// RequestTransferInput describes a new transfer.
type RequestTransferInput struct {
	StockID    id.ID
	Quantity   types.Quantity
	FromSiteID *id.ID
	ToSiteID   id.ID
	Note       string
}

// DecideInput carries the decision and an optional note.
type DecideInput struct {
	Decision Decision
	Note     string
}

// Completion is the terminal state written by a decision.
type Completion struct {
	Status      TransferStatus
	DecidedBy   id.ID
	DecidedAt   time.Time
	DestStockID *id.ID
	Note        string
}

// Totals are the conservation figures of one material identity.
type Totals struct {
	OnHand   types.Quantity
	Received types.Quantity
	Consumed types.Quantity
}

// Conservation reports whether on-hand quantity is explained by the log.
type Conservation struct {
	Identity
	OnHand   types.Quantity `json:"onHand"`
	Received types.Quantity `json:"received"`
	Consumed types.Quantity `json:"consumed"`
	Balanced bool           `json:"balanced"`
}

// ListFilter narrows stock listings. PoolOnly selects lines without a site.
type ListFilter struct {
	SiteID   *id.ID
	PoolOnly bool
	Category string
	Limit    int
	Offset   int
}

// TransferFilter narrows transfer listings.
type TransferFilter struct {
	Status *TransferStatus
	SiteID *id.ID
	Limit  int
	Offset int
}

// Repository persists stock lines, movements and transfers.
type Repository interface {
	GetByID(ctx context.Context, stockID id.ID) (*Stock, error)
	List(ctx context.Context, filter ListFilter) ([]*Stock, error)

	// CreditLine adds qty to the line for (site, identity), creating it with
	// unitCost when absent, and returns the updated line.
	CreditLine(ctx context.Context, siteID *id.ID, ident Identity, unitCost types.Money, qty types.Quantity) (*Stock, error)
	// DecrementIfAvailable subtracts qty only when quantity >= qty.
	DecrementIfAvailable(ctx context.Context, stockID id.ID, qty types.Quantity) (bool, error)

	AppendMovement(ctx context.Context, m *Movement) error
	ListMovements(ctx context.Context, stockID id.ID, limit int) ([]*Movement, error)
	IdentityTotals(ctx context.Context, ident Identity) (Totals, error)

	CreateTransfer(ctx context.Context, t *Transfer) error
	GetTransfer(ctx context.Context, transferID id.ID) (*Transfer, error)
	// CompleteTransfer writes the terminal state only while the transfer is
	// still requested; false means another decision won.
	CompleteTransfer(ctx context.Context, transferID id.ID, c Completion) (bool, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]*Transfer, error)
}
