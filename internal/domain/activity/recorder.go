package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"buildledger/internal/core/actor"
	"buildledger/internal/core/id"
)

// DefaultCompressThreshold is the payload size above which zstd is used.
const DefaultCompressThreshold = 10 * 1024

// Recorder writes activity entries inside the caller's unit of work.
type Recorder struct {
	repo      Repository
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewRecorder creates a Recorder.
func NewRecorder(repo Repository) (*Recorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Recorder{
		repo:      repo,
		encoder:   encoder,
		decoder:   decoder,
		threshold: DefaultCompressThreshold,
	}, nil
}

// WithThreshold overrides the compression threshold.
func (r *Recorder) WithThreshold(n int) *Recorder {
	r.threshold = n
	return r
}

// Record appends one entry. Call it inside the mutation's transaction so the
// entry shares its fate.
func (r *Recorder) Record(ctx context.Context, a actor.Actor, action Action, entityType string, entityID id.ID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}

	e := &Entry{
		ID:          id.New(),
		ActorID:     a.UserID(),
		ActorRole:   string(a.Role()),
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Compression: CompressionNone,
		CreatedAt:   time.Now().UTC(),
	}
	if len(raw) > r.threshold {
		e.PayloadCompressed = r.encoder.EncodeAll(raw, nil)
		e.Compression = CompressionZstd
	} else {
		e.Payload = raw
	}

	if err := r.repo.Append(ctx, e); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// History returns the newest entries for an entity with payloads decoded.
func (r *Recorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := r.repo.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Compression == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decoded, err := r.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress activity %s: %w", e.ID, err)
			}
			e.Payload = decoded
			e.PayloadCompressed = nil
		}
	}
	return entries, nil
}
