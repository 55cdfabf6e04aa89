package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "buildledger/internal/core/numerator"
)

type scanRow struct {
	val int64
	err error
}

func (r scanRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeSequences mimics the sys_sequences upsert per key.
type fakeSequences struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (f *fakeSequences) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return scanRow{err: f.err}
	}
	if f.values == nil {
		f.values = make(map[string]int64)
	}
	key := args[0].(string)
	f.values[key]++
	return scanRow{val: f.values[key]}
}

var may = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func generator(q Querier) *Sequences {
	return NewSequences(func(context.Context) Querier { return q })
}

func TestSequencesPerSeriesAndYear(t *testing.T) {
	g := generator(&fakeSequences{})
	ctx := context.Background()

	a, err := g.Next(ctx, corenumerator.Transfers, may)
	require.NoError(t, err)
	b, err := g.Next(ctx, corenumerator.Transfers, may)
	require.NoError(t, err)
	p, err := g.Next(ctx, corenumerator.Purchases, may)
	require.NoError(t, err)
	next, err := g.Next(ctx, corenumerator.Transfers, may.AddDate(1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, "TRF-2026-00001", a)
	assert.Equal(t, "TRF-2026-00002", b)
	assert.Equal(t, "PUR-2026-00001", p)
	assert.Equal(t, "TRF-2027-00001", next)
}

func TestSequencesWrapsStorageError(t *testing.T) {
	g := generator(&fakeSequences{err: errors.New("connection reset")})
	_, err := g.Next(context.Background(), corenumerator.Rentals, may)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RNT_2026")
}

func TestMemoryIsSafeForConcurrentUse(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := m.Next(ctx, corenumerator.Rentals, may)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
	assert.True(t, seen["RNT-2026-00050"])
}
