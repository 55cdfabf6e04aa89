package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/id"
	"buildledger/internal/domain/notification"
	"buildledger/pkg/logger"
)

const outboxTable = "sys_outbox"

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxRetries is the number of failed deliveries after which a message
// is parked as failed.
const MaxOutboxRetries = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var outboxColumns = Columns[OutboxMessage]()

// OutboxPublisher implements notification.Publisher by writing the event
// into sys_outbox inside the creating transaction. The worker relays it.
type OutboxPublisher struct {
	Base
}

var _ notification.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates an outbox publisher.
func NewOutboxPublisher(txm *TxManager) *OutboxPublisher {
	return &OutboxPublisher{Base: NewBase(txm)}
}

// Publish must run inside a transaction so the event commits with the
// notification row.
func (p *OutboxPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	if !p.txm.InTransaction(ctx) {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	payload, err := json.Marshal(notification.Event{Kind: notification.EventKindCreated, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return p.Insert(ctx, outboxTable, &OutboxMessage{
		ID:            id.New(),
		AggregateType: "notification",
		AggregateID:   n.ID,
		EventType:     notification.EventKindCreated,
		Payload:       payload,
		Status:        OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	})
}

// OutboxHandler delivers one relayed message.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay moves pending messages to an OutboxHandler. Each batch runs in
// one transaction so FOR UPDATE SKIP LOCKED keeps concurrent relays apart.
type OutboxRelay struct {
	Base
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(txm *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{Base: NewBase(txm), batchSize: batchSize, handler: handler}
}

// ProcessBatch delivers up to batchSize due messages and returns how many
// were published.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.Builder().Select(outboxColumns...).From(outboxTable).
			Where(squirrel.Eq{"status": OutboxStatusPending}).
			Where(squirrel.Or{
				squirrel.Eq{"next_retry_at": nil},
				squirrel.Expr("next_retry_at <= NOW()"),
			}).
			OrderBy("created_at").
			Limit(uint64(r.batchSize)).
			Suffix("FOR UPDATE SKIP LOCKED")

		var messages []*OutboxMessage
		if err := r.Select(ctx, &messages, q); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.deliver(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox delivery failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"retry", msg.RetryCount+1,
					"error", err,
				)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	if err := r.handler.Handle(ctx, msg); err != nil {
		status := OutboxStatusPending
		if msg.RetryCount+1 >= MaxOutboxRetries {
			status = OutboxStatusFailed
		}
		_, updateErr := r.Exec(ctx, r.Builder().Update(outboxTable).
			Set("retry_count", squirrel.Expr("retry_count + 1")).
			Set("last_error", err.Error()).
			Set("next_retry_at", time.Now().UTC().Add(time.Duration(msg.RetryCount+1)*time.Minute)).
			Set("status", status).
			Where(squirrel.Eq{"id": msg.ID}))
		if updateErr != nil {
			return fmt.Errorf("record outbox failure: %w", updateErr)
		}
		return err
	}

	_, err := r.Exec(ctx, r.Builder().Update(outboxTable).
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": msg.ID}))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// PurgePublished deletes published messages older than age.
func (r *OutboxRelay) PurgePublished(ctx context.Context, age time.Duration) (int64, error) {
	n, err := r.Exec(ctx, r.Builder().Delete(outboxTable).
		Where(squirrel.Eq{"status": OutboxStatusPublished}).
		Where(squirrel.Lt{"published_at": time.Now().UTC().Add(-age)}))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return n, nil
}
