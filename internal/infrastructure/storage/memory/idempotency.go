package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"buildledger/internal/core/apperror"
	"buildledger/internal/core/idempotency"
)

// IdempotencyStore is an in-process idempotency.Store. It is independent of
// the unit-of-work lock so replays never wait on business writes.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]*idempotencyRecord
	now  func() time.Time
}

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	replay      *idempotency.Replay
	createdAt   time.Time
	expiresAt   time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{ttl: ttl, keys: make(map[string]*idempotencyRecord), now: time.Now}
}

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if ok && now.After(rec.expiresAt) {
		delete(s.keys, key)
		ok = false
	}
	if !ok {
		s.keys[key] = &idempotencyRecord{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			createdAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	switch rec.status {
	case idempotency.StatusSuccess:
		return rec.replay, nil
	case idempotency.StatusFailed:
		rec.status = idempotency.StatusPending
		rec.createdAt = now
		return nil, nil
	}
	if now.Sub(rec.createdAt) > idempotency.StaleAfter {
		rec.createdAt = now
		return nil, nil
	}
	return nil, apperror.NewIdempotencyConflict(key)
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	body, err := encodeReplayBody(response)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.keys[key]
	if !ok {
		return nil
	}
	rec.status = status
	rec.replay = &idempotency.Replay{
		StatusCode:  idempotency.NormalizeStatus(statusCode),
		ContentType: idempotency.NormalizeContentType(contentType),
		Body:        body,
	}
	return nil
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for key, rec := range s.keys {
		if now.After(rec.expiresAt) {
			delete(s.keys, key)
			n++
		}
	}
	return n, nil
}

func encodeReplayBody(response any) ([]byte, error) {
	switch v := response.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	}
	return json.Marshal(response)
}
