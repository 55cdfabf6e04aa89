package app

import (
	"time"

	"buildledger/internal/infrastructure/numerator"
	"buildledger/internal/infrastructure/storage/memory"
)

// MemoryStorage returns storage backed by one in-process store.
func MemoryStorage(idempotencyTTL time.Duration) (*Storage, *memory.Store) {
	store := memory.New()
	return &Storage{
		TxManager:     store,
		Sites:         store.Sites(),
		Company:       store.Company(),
		Contractors:   store.Contractors(),
		Stock:         store.Stock(),
		Wages:         store.Wages(),
		Procurement:   store.Procurement(),
		Notifications: store.Notifications(),
		Activity:      store.Activity(),
		Idempotency:   memory.NewIdempotencyStore(idempotencyTTL),
		Numerator:     numerator.NewMemory(),
	}, store
}
