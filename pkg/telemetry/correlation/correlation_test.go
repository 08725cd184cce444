package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestEnsureCorrelationID_KeepsExisting(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "batch-1")
	ctx, id := EnsureCorrelationID(ctx)
	assert.Equal(t, "batch-1", id)
	assert.Equal(t, "batch-1", ExtractCorrelationID(ctx))
}

func TestEnsureCorrelationID_GeneratesULID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	_, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, ExtractCorrelationID(ctx))
}

func TestFields_IncludesTraceIdentifiers(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	ctx = ContextWithCorrelationID(ctx, "batch-2")

	fields := Fields(ctx)
	assert.Equal(t, "batch-2", fields["correlation_id"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, spanID.String(), fields["span_id"])
	assert.Empty(t, Fields(context.Background()))
}
