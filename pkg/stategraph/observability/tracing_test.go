package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs an in-memory exporter and rebinds the
// package tracer to it.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("stategraph")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("stategraph")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
	})
	return exporter
}

func attrValue(attrs []attribute.KeyValue, key attribute.Key) string {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

// TestStartInvokeSpan names the span and tags it with graph and run.
func TestStartInvokeSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	_, span := m.StartInvokeSpan(context.Background(), "review-selection", "run-123")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stategraph.invoke", spans[0].Name)
	assert.Equal(t, "review-selection", attrValue(spans[0].Attributes, "graph.name"))
	assert.Equal(t, "run-123", attrValue(spans[0].Attributes, "run.id"))
}

// TestStartNodeSpan nests node spans under the invocation span.
func TestStartNodeSpan(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, invokeSpan := m.StartInvokeSpan(context.Background(), "g", "run-1")
	_, nodeSpan := m.StartNodeSpan(ctx, "load_reviews")
	nodeSpan.End()
	invokeSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	node := spans[0]
	invoke := spans[1]
	assert.Equal(t, "stategraph.node.load_reviews", node.Name)
	assert.Equal(t, "load_reviews", attrValue(node.Attributes, "node"))
	assert.Equal(t, invoke.SpanContext.SpanID(), node.Parent.SpanID())
}

// TestEndSpanWithError records the error and sets the span status.
func TestEndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	_, failed := m.StartNodeSpan(context.Background(), "a")
	m.EndSpanWithError(failed, errors.New("step exploded"))

	_, ok := m.StartNodeSpan(context.Background(), "b")
	m.EndSpanWithError(ok, nil)

	assert.NotPanics(t, func() { m.EndSpanWithError(nil, errors.New("ignored")) })

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "step exploded", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)

	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}

// TestAddSpanEvent attaches events to the recording span in context.
func TestAddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)
	m := NewSpanManager()

	ctx, span := m.StartNodeSpan(context.Background(), "fuse")
	m.AddSpanEvent(ctx, "cache.hit", attribute.String("perspective", "quality"))
	span.End()

	// No recording span in a bare context: silently dropped.
	assert.NotPanics(t, func() { m.AddSpanEvent(context.Background(), "lost") })

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "cache.hit", spans[0].Events[0].Name)
	assert.Equal(t, "quality", attrValue(spans[0].Events[0].Attributes, "perspective"))
}

// TestNoopSpanManager passes contexts through and never records.
func TestNoopSpanManager(t *testing.T) {
	var m SpanManager = NoopSpanManager{}
	ctx := context.Background()

	outCtx, span := m.StartInvokeSpan(ctx, "g", "run")
	assert.Equal(t, ctx, outCtx)
	assert.False(t, span.IsRecording())

	assert.NotPanics(t, func() {
		m.EndSpanWithError(span, errors.New("x"))
		m.AddSpanEvent(ctx, "event")
	})
}
