// Package activity records one entry per core mutation. Payloads above a
// size threshold are stored zstd-compressed.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"buildledger/internal/core/id"
)

// Action is the verb recorded for an entry.
type Action string

const (
	ActionCreate         Action = "create"
	ActionPost           Action = "post"
	ActionStatusChange   Action = "status_change"
	ActionRequest        Action = "request"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionVerify         Action = "verify"
	ActionPay            Action = "pay"
	ActionAssign         Action = "assign"
	ActionReceive        Action = "receive"
	ActionConsume        Action = "consume"
	ActionResolve        Action = "resolve"
	ActionReconcile      Action = "reconcile"
	ActionMarkAttendance Action = "mark_attendance"
)

// Compression names the payload encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Entry is a stored activity record.
type Entry struct {
	ID                id.ID           `db:"id" json:"id"`
	ActorID           id.ID           `db:"actor_id" json:"actorId"`
	ActorRole         string          `db:"actor_role" json:"actorRole"`
	Action            Action          `db:"action" json:"action"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          id.ID           `db:"entity_id" json:"entityId"`
	Payload           json.RawMessage `db:"payload" json:"payload,omitempty"`
	PayloadCompressed []byte          `db:"payload_compressed" json:"-"`
	Compression       Compression     `db:"compression" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// Repository persists entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	ListByEntity(ctx context.Context, entityType string, entityID id.ID, limit int) ([]*Entry, error)
}
