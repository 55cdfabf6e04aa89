package numerator

import (
	"context"
	"sync"
	"time"

	corenumerator "buildledger/internal/core/numerator"
)

// Memory is an in-process Generator. A rolled-back unit keeps its number, so
// series issued here may have gaps.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
}

var _ corenumerator.Generator = (*Memory)(nil)

// NewMemory creates an in-memory generator.
func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int64)}
}

func (m *Memory) Next(_ context.Context, s corenumerator.Series, at time.Time) (string, error) {
	key := s.Key(at)
	m.mu.Lock()
	m.counters[key]++
	n := m.counters[key]
	m.mu.Unlock()
	return s.Format(at, n), nil
}
