package notification

import (
	"context"
	"fmt"
	"time"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/apperror"
	"buildledger/internal/core/id"
	"buildledger/internal/core/tx"
	"buildledger/pkg/logger"
)

const DefaultTimeout = 5 * time.Second

// Dispatcher creates and resolves notifications.
type Dispatcher struct {
	txm       tx.Manager
	repo      Repository
	publisher Publisher
	timeout   time.Duration
	errs      chan error
}

// NewDispatcher creates a Dispatcher. publisher may be nil.
func NewDispatcher(txm tx.Manager, repo Repository, publisher Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		txm:       txm,
		repo:      repo,
		publisher: publisher,
		timeout:   timeout,
		errs:      make(chan error, 64),
	}
}

// Errors exposes delivery failures of Emit. The channel is buffered and
// drops errors when nobody reads it.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Notify creates a pending notification and publishes it.
func (d *Dispatcher) Notify(ctx context.Context, in NotifyInput) (*Notification, error) {
	if id.IsNil(in.UserID) {
		return nil, apperror.NewFieldValidation("userId", "recipient is required")
	}
	if in.Type == "" {
		return nil, apperror.NewFieldValidation("type", "notification type is required")
	}

	n := &Notification{
		ID:        id.New(),
		UserID:    in.UserID,
		Type:      in.Type,
		RelatedID: in.RelatedID,
		Message:   in.Message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	err := d.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := d.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		if d.publisher != nil {
			if err := d.publisher.Publish(ctx, n); err != nil {
				return fmt.Errorf("publish notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Emit is the best-effort form of Notify used from after-commit hooks. It
// never fails the caller: errors are logged and pushed to Errors().
func (d *Dispatcher) Emit(ctx context.Context, in NotifyInput) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if _, err := d.Notify(ctx, in); err != nil {
		logger.Warn(ctx, "notification delivery failed",
			"type", in.Type,
			"user_id", in.UserID,
			"error", err,
		)
		select {
		case d.errs <- fmt.Errorf("notify %s for %s: %w", in.Type, in.UserID, err):
		default:
		}
	}
}

// Resolve moves a pending notification to an outcome. Only the recipient or a
// role allowed to resolve notifications may do it.
func (d *Dispatcher) Resolve(ctx context.Context, a actor.Actor, notificationID id.ID, outcome Status) (*Notification, error) {
	if !outcome.IsOutcome() {
		return nil, apperror.NewFieldValidation("status", "must be approved or rejected")
	}

	var result *Notification
	err := d.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := d.repo.GetByID(ctx, notificationID)
		if err != nil {
			return err
		}
		if n.UserID != a.UserID() {
			if err := a.Authorize(actor.ActionResolveNotice); err != nil {
				return err
			}
		}
		if n.Status != StatusPending {
			return apperror.NewInvalidState("notification", notificationID, string(n.Status), "resolve")
		}

		now := time.Now().UTC()
		by := a.UserID()
		ok, err := d.repo.Resolve(ctx, notificationID, outcome, &by, now)
		if err != nil {
			return fmt.Errorf("resolve notification: %w", err)
		}
		if !ok {
			return apperror.NewInvalidState("notification", notificationID, string(n.Status), "resolve")
		}

		n.Status = outcome
		n.ResolvedBy = &by
		n.ResolvedAt = &now
		result = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveRelated resolves every pending notification about relatedID,
// mirroring a workflow outcome. Returns the number resolved.
func (d *Dispatcher) ResolveRelated(ctx context.Context, relatedID id.ID, outcome Status, by *id.ID) (int, error) {
	if !outcome.IsOutcome() {
		return 0, apperror.NewFieldValidation("status", "must be approved or rejected")
	}

	resolved := 0
	err := d.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		pending, err := d.repo.ListPendingByRelated(ctx, relatedID)
		if err != nil {
			return fmt.Errorf("list related notifications: %w", err)
		}
		now := time.Now().UTC()
		for _, n := range pending {
			ok, err := d.repo.Resolve(ctx, n.ID, outcome, by, now)
			if err != nil {
				return fmt.Errorf("resolve notification %s: %w", n.ID, err)
			}
			if ok {
				resolved++
			}
		}
		return nil
	})
	return resolved, err
}

// ListForUser returns notifications for the actor, newest first.
func (d *Dispatcher) ListForUser(ctx context.Context, a actor.Actor, filter ListFilter) ([]*Notification, error) {
	if a.IsZero() {
		return nil, apperror.NewUnauthenticated("actor required")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return d.repo.ListByUser(ctx, a.UserID(), filter)
}
