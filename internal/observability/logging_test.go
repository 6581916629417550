package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogOptions{JSON: true, Out: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "hello", "stage", "story")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "story", line["stage"])
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestInitLoggerLevels(t *testing.T) {
	t.Run("info drops debug", func(t *testing.T) {
		var buf bytes.Buffer
		InitLogger(LogOptions{Out: &buf}).Debug("quiet")
		assert.Empty(t, buf.String())
	})

	t.Run("debug keeps debug", func(t *testing.T) {
		var buf bytes.Buffer
		InitLogger(LogOptions{Out: &buf, Debug: true}).Debug("loud")
		assert.Contains(t, buf.String(), "loud")
	})

	t.Run("no span no ids", func(t *testing.T) {
		var buf bytes.Buffer
		InitLogger(LogOptions{Out: &buf}).With("k", "v").WithGroup("g").Info("x", "a", 1)
		assert.NotContains(t, buf.String(), "trace_id")
		assert.Contains(t, buf.String(), "k=v")
	})
}

func TestDetachTraceContextFrom(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	reqCtx, cancel := context.WithCancel(context.Background())
	reqCtx, span := tp.Tracer("test").Start(reqCtx, "request")
	defer span.End()

	base := context.Background()
	detached := DetachTraceContextFrom(reqCtx, base)
	cancel()

	assert.NoError(t, detached.Err())
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(detached).TraceID())

	assert.Equal(t, base, DetachTraceContextFrom(context.Background(), base))
}
