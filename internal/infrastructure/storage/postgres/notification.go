package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/id"
	"buildledger/internal/domain/notification"
)

const notificationsTable = "notifications"

var notificationColumns = Columns[notification.Notification]()

// NotificationRepo implements notification.Repository.
type NotificationRepo struct {
	Base
}

var _ notification.Repository = (*NotificationRepo)(nil)

// NewNotificationRepo creates a notification repository.
func NewNotificationRepo(txm *TxManager) *NotificationRepo {
	return &NotificationRepo{Base: NewBase(txm)}
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return r.Insert(ctx, notificationsTable, n)
}

func (r *NotificationRepo) GetByID(ctx context.Context, notificationID id.ID) (*notification.Notification, error) {
	var n notification.Notification
	q := r.Builder().Select(notificationColumns...).From(notificationsTable).
		Where(squirrel.Eq{"id": notificationID})
	if err := r.Get(ctx, &n, q, "notification", notificationID); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) Resolve(ctx context.Context, notificationID id.ID, outcome notification.Status, by *id.ID, at time.Time) (bool, error) {
	n, err := r.Exec(ctx, r.Builder().Update(notificationsTable).
		Set("status", outcome).
		Set("resolved_by", by).
		Set("resolved_at", at).
		Where(squirrel.Eq{"id": notificationID, "status": notification.StatusPending}))
	if err != nil {
		return false, fmt.Errorf("resolve notification: %w", err)
	}
	return n == 1, nil
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID id.ID, filter notification.ListFilter) ([]*notification.Notification, error) {
	q := r.Builder().Select(notificationColumns...).From(notificationsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	var out []*notification.Notification
	if err := r.Select(ctx, &out, Page(q, filter.Limit, filter.Offset)); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepo) ListPendingByRelated(ctx context.Context, relatedID id.ID) ([]*notification.Notification, error) {
	q := r.Builder().Select(notificationColumns...).From(notificationsTable).
		Where(squirrel.Eq{"related_id": relatedID, "status": notification.StatusPending}).
		OrderBy("created_at")
	var out []*notification.Notification
	if err := r.Select(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list related notifications: %w", err)
	}
	return out, nil
}
