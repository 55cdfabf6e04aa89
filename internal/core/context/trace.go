// Package context carries the correlation ids of one HTTP request or one
// background job run.
package context

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Correlation ties log lines, spans and error bodies of one operation
// together. TraceID is a W3C trace id (32 hex digits).
type Correlation struct {
	RequestID string
	TraceID   string
	// Job is set for worker runs instead of RequestID.
	Job string
}

type correlationKey struct{}

// WithCorrelation stores c in ctx.
func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

// CorrelationFrom returns the ids stored in ctx, or the trace id of the
// active span when nothing was stored.
func CorrelationFrom(ctx context.Context) (Correlation, bool) {
	if c, ok := ctx.Value(correlationKey{}).(Correlation); ok {
		return c, true
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return Correlation{TraceID: sc.TraceID().String()}, true
	}
	return Correlation{}, false
}

// RequestID returns the request id carried by ctx, if any.
func RequestID(ctx context.Context) string {
	c, _ := CorrelationFrom(ctx)
	return c.RequestID
}

// ForRequest builds the ids of an incoming request. A client request id is
// kept so retries correlate; an invalid incoming trace id is replaced.
func ForRequest(requestID, traceID string) Correlation {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	if _, err := trace.TraceIDFromHex(traceID); err != nil {
		traceID = newTraceID()
	}
	return Correlation{RequestID: requestID, TraceID: traceID}
}

// ForJob builds the ids of one run of a background job.
func ForJob(job string) Correlation {
	return Correlation{TraceID: newTraceID(), Job: job}
}

func newTraceID() string {
	return trace.TraceID(uuid.New()).String()
}
