package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/id"
	"buildledger/internal/domain/activity"
)

const activityTable = "activity_log"

var activityColumns = Columns[activity.Entry]()

// ActivityRepo stores activity entries. Payloads arrive already compressed
// by activity.Recorder when they exceed its threshold.
type ActivityRepo struct {
	Base
}

var _ activity.Repository = (*ActivityRepo)(nil)

// NewActivityRepo creates an activity repository.
func NewActivityRepo(txm *TxManager) *ActivityRepo {
	return &ActivityRepo{Base: NewBase(txm)}
}

func (r *ActivityRepo) Append(ctx context.Context, e *activity.Entry) error {
	row := Row(e)
	if len(e.Payload) == 0 {
		row["payload"] = nil
	}
	if _, err := r.Exec(ctx, r.Builder().Insert(activityTable).SetMap(row)); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByEntity returns entries newest first.
func (r *ActivityRepo) ListByEntity(ctx context.Context, entityType string, entityID id.ID, limit int) ([]*activity.Entry, error) {
	q := r.Builder().Select(activityColumns...).From(activityTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC")
	var out []*activity.Entry
	if err := r.Select(ctx, &out, Page(q, limit, 0)); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return out, nil
}
