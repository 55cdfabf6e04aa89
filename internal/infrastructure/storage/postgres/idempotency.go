package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/idempotency"
)

const idempotencyTable = "sys_idempotency"

// idempotencyRecord is the part of a stored key AcquireKey inspects.
type idempotencyRecord struct {
	UserID      string
	Operation   string
	Status      idempotency.Status
	RequestHash string
	Response    []byte
	StatusCode  int
	ContentType string
	UpdatedAt   time.Time
	Inserted    bool
}

// IdempotencyStore implements idempotency.Store on sys_idempotency.
type IdempotencyStore struct {
	Base
	ttl time.Duration
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an idempotency store.
func NewIdempotencyStore(txm *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{Base: NewBase(txm), ttl: ttl}
}

// AcquireKey inserts the key or loads the existing one. xmax = 0 tells a
// fresh insert from a conflict update.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()

	var rec idempotencyRecord
	err := s.Querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING user_id, operation, status, request_hash, response, response_status,
		          response_content_type, updated_at, (xmax = 0) AS inserted
	`, key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&rec.UserID, &rec.Operation, &rec.Status, &rec.RequestHash, &rec.Response,
		&rec.StatusCode, &rec.ContentType, &rec.UpdatedAt, &rec.Inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if rec.Inserted {
		return nil, nil
	}

	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case idempotency.StatusSuccess:
		return &idempotency.Replay{
			StatusCode:  idempotency.NormalizeStatus(rec.StatusCode),
			ContentType: idempotency.NormalizeContentType(rec.ContentType),
			Body:        rec.Response,
		}, nil

	case idempotency.StatusFailed:
		// a failed attempt released the key; this request takes it over
		return nil, s.reclaim(ctx, key, idempotency.StatusFailed, now)

	default:
		if now.Sub(rec.UpdatedAt) > idempotency.StaleAfter {
			return nil, s.reclaim(ctx, key, idempotency.StatusPending, now)
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
}

func (s *IdempotencyStore) reclaim(ctx context.Context, key string, from idempotency.Status, now time.Time) error {
	n, err := s.Exec(ctx, s.Builder().Update(idempotencyTable).
		Set("status", idempotency.StatusPending).
		Set("updated_at", now).
		Where(squirrel.Eq{"idempotency_key": key, "status": from}))
	if err != nil {
		return fmt.Errorf("reclaim idempotency key: %w", err)
	}
	if n == 0 {
		return apperror.NewIdempotencyConflict(key)
	}
	return nil
}

// CompleteKey stores the successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey releases the key so the client may retry with it.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	body, err := replayBody(response)
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, s.Builder().Update(idempotencyTable).
		Set("status", status).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"idempotency_key": key}))
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.Exec(ctx, s.Builder().Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": time.Now().UTC()}))
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return n, nil
}

func replayBody(response any) ([]byte, error) {
	switch v := response.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal response: %w", err)
		}
		return b, nil
	}
}
