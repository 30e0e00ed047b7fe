package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records workflow execution metrics.
// Use NewMetricsRecorder() for OTel metrics, NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStep records one node execution with duration and outcome.
	RecordStep(ctx context.Context, node string, duration time.Duration, err error)

	// RecordInvocation records one completed graph invocation.
	RecordInvocation(ctx context.Context, success bool, duration time.Duration, steps int)

	// RecordSnapshot records a persisted state snapshot.
	RecordSnapshot(ctx context.Context, node string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	steps          metric.Int64Counter
	stepLatency    metric.Float64Histogram
	stepErrors     metric.Int64Counter
	invocations    metric.Int64Counter
	invokeLatency  metric.Float64Histogram
	stepsPerInvoke metric.Int64Histogram
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("stategraph")

	steps, err := meter.Int64Counter("stategraph.step.executions",
		metric.WithDescription("Number of node executions"),
	)
	if err != nil {
		return nil, err
	}

	stepLatency, err := meter.Float64Histogram("stategraph.step.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter("stategraph.step.errors",
		metric.WithDescription("Number of node execution errors"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter("stategraph.invoke.count",
		metric.WithDescription("Number of graph invocations"),
	)
	if err != nil {
		return nil, err
	}

	invokeLatency, err := meter.Float64Histogram("stategraph.invoke.latency_ms",
		metric.WithDescription("Graph invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	stepsPerInvoke, err := meter.Int64Histogram("stategraph.invoke.steps",
		metric.WithDescription("Nodes executed per invocation"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("stategraph.snapshot.size_bytes",
		metric.WithDescription("Persisted snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		steps:          steps,
		stepLatency:    stepLatency,
		stepErrors:     stepErrors,
		invocations:    invocations,
		invokeLatency:  invokeLatency,
		stepsPerInvoke: stepsPerInvoke,
		snapshotSize:   snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider, or a no-op recorder if instrument creation fails.
// Configure the provider before calling:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordStep records one node execution.
func (m *otelMetrics) RecordStep(ctx context.Context, node string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("node", node)}

	m.steps.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.stepLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.stepErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordInvocation records one completed invocation.
func (m *otelMetrics) RecordInvocation(ctx context.Context, success bool, duration time.Duration, steps int) {
	attrs := []attribute.KeyValue{attribute.Bool("success", success)}
	m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.invokeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.stepsPerInvoke.Record(ctx, int64(steps), metric.WithAttributes(attrs...))
}

// RecordSnapshot records a persisted snapshot.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, node string, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes,
		metric.WithAttributes(attribute.String("node", node)))
}
