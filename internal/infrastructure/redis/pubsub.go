package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"buildledger/internal/core/tx"
	"buildledger/internal/domain/notification"
	"buildledger/internal/infrastructure/storage/postgres"
	"buildledger/pkg/logger"
)

// NotificationChannel is the pub/sub channel carrying notification events.
const NotificationChannel = "buildledger:notifications"

// Publisher fans notification events out over Redis pub/sub.
//
// As a notification.Publisher it publishes after the creating unit commits.
// As a postgres.OutboxHandler it publishes relayed outbox payloads.
type Publisher struct {
	rdb     goredis.UniversalClient
	channel string
}

var (
	_ notification.Publisher = (*Publisher)(nil)
	_ postgres.OutboxHandler = (*Publisher)(nil)
)

// NewPublisher creates a Publisher on NotificationChannel.
func NewPublisher(rdb goredis.UniversalClient) *Publisher {
	return &Publisher{rdb: rdb, channel: NotificationChannel}
}

// Publish schedules the event for after commit. Delivery failures are
// logged; the notification row stays authoritative.
func (p *Publisher) Publish(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(notification.Event{Kind: notification.EventKindCreated, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		if err := p.send(ctx, payload); err != nil {
			logger.Warn(ctx, "publish notification event", "notification_id", n.ID, "error", err)
		}
	})
	return nil
}

// Handle publishes a relayed outbox message as is.
func (p *Publisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return p.send(ctx, msg.Payload)
}

func (p *Publisher) send(ctx context.Context, payload []byte) error {
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

// Subscribe decodes events from NotificationChannel and hands them to fn
// until ctx is done.
func Subscribe(ctx context.Context, rdb goredis.UniversalClient, fn func(context.Context, notification.Event)) error {
	sub := rdb.Subscribe(ctx, NotificationChannel)
	defer func() {
		_ = sub.Close()
	}()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", NotificationChannel, err)
	}
	logger.Info(ctx, "subscribed to notification channel", "channel", NotificationChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev notification.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn(ctx, "drop malformed notification event", "error", err)
				continue
			}
			if ev.Notification == nil {
				continue
			}
			fn(ctx, ev)
		}
	}
}
