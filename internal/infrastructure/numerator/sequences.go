// Package numerator implements numerator.Generator on the sys_sequences
// table, plus an in-process variant for the memory driver.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "buildledger/internal/core/numerator"
)

// Querier is the subset of pgx used here.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierSource resolves the querier for ctx. Passing the unit's transaction
// makes the counter row part of the business unit: the row lock serializes
// concurrent issuers and a rollback returns the number.
type QuerierSource func(ctx context.Context) Querier

const bumpSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
	RETURNING current_val`

// Sequences issues gapless numbers from sys_sequences.
type Sequences struct {
	source QuerierSource
}

var _ corenumerator.Generator = (*Sequences)(nil)

// NewSequences creates a generator over source.
func NewSequences(source QuerierSource) *Sequences {
	return &Sequences{source: source}
}

func (g *Sequences) Next(ctx context.Context, s corenumerator.Series, at time.Time) (string, error) {
	key := s.Key(at)
	var n int64
	if err := g.source(ctx).QueryRow(ctx, bumpSQL, key).Scan(&n); err != nil {
		return "", fmt.Errorf("bump sequence %s: %w", key, err)
	}
	return s.Format(at, n), nil
}
