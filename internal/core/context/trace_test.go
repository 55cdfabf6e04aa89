package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestForRequestKeepsClientIDs(t *testing.T) {
	const incoming = "4bf92f3577b34da6a3ce929d0e0e4736"
	c := ForRequest("req-1", incoming)

	assert.Equal(t, "req-1", c.RequestID)
	assert.Equal(t, incoming, c.TraceID)
}

func TestForRequestReplacesInvalidTraceID(t *testing.T) {
	c := ForRequest("", "not-a-trace")

	assert.NotEmpty(t, c.RequestID)
	_, err := trace.TraceIDFromHex(c.TraceID)
	assert.NoError(t, err)
}

func TestCorrelationRoundTrip(t *testing.T) {
	ctx := WithCorrelation(context.Background(), ForJob("outbox"))

	c, ok := CorrelationFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "outbox", c.Job)
	assert.Empty(t, RequestID(ctx))
}

func TestCorrelationFallsBackToSpan(t *testing.T) {
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	c, ok := CorrelationFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, tid.String(), c.TraceID)

	_, ok = CorrelationFrom(context.Background())
	assert.False(t, ok)
}
