// Package notification stores actionable events addressed to users and fans
// them out to realtime subscribers.
package notification

import (
	"context"
	"time"

	"buildledger/internal/core/id"
)

// Type classifies a notification.
type Type string

const (
	TypeTransferRequest  Type = "stock_transfer_request"
	TypeTransferDecision Type = "stock_transfer_decision"
	TypeBudgetAlert      Type = "budget_alert"
	TypePurchaseVerified Type = "purchase_verified"
)

// Status of a notification. Pending resolves once to approved or rejected.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsOutcome reports whether s is a terminal outcome.
func (s Status) IsOutcome() bool {
	return s == StatusApproved || s == StatusRejected
}

// Notification is a message for one user.
type Notification struct {
	ID         id.ID      `db:"id" json:"id"`
	UserID     id.ID      `db:"user_id" json:"userId"`
	Type       Type       `db:"type" json:"type"`
	RelatedID  *id.ID     `db:"related_id" json:"relatedId,omitempty"`
	Message    string     `db:"message" json:"message"`
	Status     Status     `db:"status" json:"status"`
	ResolvedBy *id.ID     `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// NotifyInput describes a notification to create.
type NotifyInput struct {
	UserID    id.ID
	Type      Type
	RelatedID *id.ID
	Message   string
}

// ListFilter narrows ListForUser.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// Repository persists notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, notificationID id.ID) (*Notification, error)
	// Resolve flips a pending notification; false when it was no longer pending.
	Resolve(ctx context.Context, notificationID id.ID, outcome Status, by *id.ID, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID id.ID, filter ListFilter) ([]*Notification, error)
	ListPendingByRelated(ctx context.Context, relatedID id.ID) ([]*Notification, error)
}

// Publisher pushes a created notification towards realtime subscribers.
// It is called inside the creating transaction; implementations defer
// delivery until commit (tx.AfterCommit) or write to a transactional outbox.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

// Event is the realtime payload for a notification.
type Event struct {
	Kind         string        `json:"kind"`
	Notification *Notification `json:"notification"`
}

const EventKindCreated = "notification.created"
