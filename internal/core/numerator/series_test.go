package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	assert.Equal(t, "TRF-2026-00042", Transfers.Format(march, 42))
	assert.Equal(t, "PUR-007", Series{Prefix: "PUR", Width: 3, Reset: ResetNever}.Format(march, 7))
	assert.Equal(t, "RNT-2026-123456", Rentals.Format(march, 123456))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "RNT_2026", Rentals.Key(march))
	assert.Equal(t, "RNT_2026_03", Series{Prefix: "RNT", Reset: ResetMonthly}.Key(march))
	assert.Equal(t, "RNT", Series{Prefix: "RNT", Reset: ResetNever}.Key(march))
}

type fixedGenerator struct{ at time.Time }

func (g *fixedGenerator) Next(_ context.Context, s Series, at time.Time) (string, error) {
	g.at = at
	return s.Format(at, 1), nil
}

func TestIssueUsesCurrentYear(t *testing.T) {
	g := &fixedGenerator{}
	num, err := Issue(context.Background(), g, Purchases)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, g.at.Location())
	assert.Equal(t, Purchases.Format(g.at, 1), num)
}
