package memory

import (
	"context"
	"sort"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/domain/notification"
)

// NotificationRepo implements notification.Repository.
type NotificationRepo struct{ s *Store }

var _ notification.Repository = (*NotificationRepo)(nil)

// Notifications returns the notification repository.
func (s *Store) Notifications() *NotificationRepo { return &NotificationRepo{s: s} }

func cloneNotification(v *notification.Notification) *notification.Notification {
	c := clone(v)
	c.RelatedID = clone(v.RelatedID)
	c.ResolvedBy = clone(v.ResolvedBy)
	c.ResolvedAt = clone(v.ResolvedAt)
	return c
}

func (r *NotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return r.s.write(ctx, func(u *unit) error {
		put(u, r.s.notifications, n.ID, cloneNotification(n))
		return nil
	})
}

func (r *NotificationRepo) GetByID(ctx context.Context, notificationID id.ID) (*notification.Notification, error) {
	var out *notification.Notification
	err := r.s.read(ctx, func() error {
		v, ok := r.s.notifications[notificationID]
		if !ok {
			return apperror.NewNotFound("notification", notificationID)
		}
		out = cloneNotification(v)
		return nil
	})
	return out, err
}

func (r *NotificationRepo) Resolve(ctx context.Context, notificationID id.ID, outcome notification.Status, by *id.ID, at time.Time) (bool, error) {
	var done bool
	err := r.s.write(ctx, func(u *unit) error {
		v, ok := r.s.notifications[notificationID]
		if !ok {
			return apperror.NewNotFound("notification", notificationID)
		}
		if v.Status != notification.StatusPending {
			return nil
		}
		c := cloneNotification(v)
		c.Status = outcome
		c.ResolvedBy = clone(by)
		c.ResolvedAt = &at
		put(u, r.s.notifications, notificationID, c)
		done = true
		return nil
	})
	return done, err
}

func (r *NotificationRepo) ListByUser(ctx context.Context, userID id.ID, filter notification.ListFilter) ([]*notification.Notification, error) {
	var out []*notification.Notification
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.notifications {
			if v.UserID != userID {
				continue
			}
			if filter.Status != nil && v.Status != *filter.Status {
				continue
			}
			out = append(out, cloneNotification(v))
		}
		return nil
	})
	sortNewestFirst(out)
	return page(out, filter.Limit, filter.Offset), err
}

func (r *NotificationRepo) ListPendingByRelated(ctx context.Context, relatedID id.ID) ([]*notification.Notification, error) {
	var out []*notification.Notification
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.notifications {
			if v.Status == notification.StatusPending && id.Equal(v.RelatedID, &relatedID) {
				out = append(out, cloneNotification(v))
			}
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func sortNewestFirst(list []*notification.Notification) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID.String() > list[j].ID.String()
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
