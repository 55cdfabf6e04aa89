package memory

import (
	"context"

	"buildledger/internal/core/id"
	"buildledger/internal/domain/activity"
)

// ActivityRepo implements activity.Repository.
type ActivityRepo struct{ s *Store }

var _ activity.Repository = (*ActivityRepo)(nil)

// Activity returns the activity log repository.
func (s *Store) Activity() *ActivityRepo { return &ActivityRepo{s: s} }

func (r *ActivityRepo) Append(ctx context.Context, e *activity.Entry) error {
	return r.s.write(ctx, func(u *unit) error {
		c := clone(e)
		c.Payload = append([]byte(nil), e.Payload...)
		c.PayloadCompressed = append([]byte(nil), e.PayloadCompressed...)
		appendSlice(u, &r.s.activity, c)
		return nil
	})
}

// ListByEntity returns entries newest first.
func (r *ActivityRepo) ListByEntity(ctx context.Context, entityType string, entityID id.ID, limit int) ([]*activity.Entry, error) {
	var out []*activity.Entry
	err := r.s.read(ctx, func() error {
		for i := len(r.s.activity) - 1; i >= 0; i-- {
			e := r.s.activity[i]
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, clone(e))
			}
		}
		return nil
	})
	return page(out, limit, 0), err
}
