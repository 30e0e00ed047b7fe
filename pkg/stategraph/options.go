package stategraph

import (
	"log/slog"
	"time"

	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
	"github.com/reviewflow/reviewflow/pkg/stategraph/observability"
)

// DefaultStepLimit is the default ceiling on node executions per
// invocation. Generous on purpose: its job is to stop conditional cycles
// that never resolve to a terminal, not to police normal workflows.
const DefaultStepLimit = 10000

// invokeConfig holds per-invocation execution settings.
type invokeConfig struct {
	stepLimit int
	deadline  time.Time

	trace  *Trace
	onStep func(node string, s State)

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	snapshots       checkpoint.Store
	runID           string
	sequence        int
	strictSnapshots bool

	parallelFanOut bool
}

// defaultInvokeConfig returns the baseline configuration.
func defaultInvokeConfig() invokeConfig {
	return invokeConfig{
		stepLimit: DefaultStepLimit,
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
	}
}

// Option configures one Invoke, Stream, or Resume call.
type Option func(*invokeConfig)

// WithStepLimit sets the maximum number of node executions.
// Values below 1 are ignored. Default: DefaultStepLimit.
func WithStepLimit(n int) Option {
	return func(c *invokeConfig) {
		if n > 0 {
			c.stepLimit = n
		}
	}
}

// WithDeadline bounds the invocation in wall-clock time. The deadline is
// checked cooperatively before each node dispatch; a step already running
// is never interrupted by the engine.
func WithDeadline(t time.Time) Option {
	return func(c *invokeConfig) { c.deadline = t }
}

// WithTrace collects the execution trace into t. The trace is appended in
// execution order and is valid whether the invocation succeeds or fails.
func WithTrace(t *Trace) Option {
	return func(c *invokeConfig) { c.trace = t }
}

// WithInvokeLogger sets the logger used for run/node lifecycle events.
// Nil disables lifecycle logging (step functions still have the context
// logger).
func WithInvokeLogger(logger *slog.Logger) Option {
	return func(c *invokeConfig) { c.logger = logger }
}

// WithMetrics records node and run metrics through the given recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *invokeConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing emits OpenTelemetry spans for the run and each node.
func WithTracing(spans observability.SpanManager) Option {
	return func(c *invokeConfig) {
		if spans != nil {
			c.spans = spans
			c.tracingEnabled = true
		}
	}
}

// WithSnapshots persists a state snapshot after each completed node so
// the run can be resumed. Requires a non-empty runID.
func WithSnapshots(store checkpoint.Store, runID string) Option {
	return func(c *invokeConfig) {
		c.snapshots = store
		c.runID = runID
	}
}

// WithStrictSnapshots makes snapshot persistence failures fatal to the
// invocation. By default they are logged and execution continues.
func WithStrictSnapshots() Option {
	return func(c *invokeConfig) { c.strictSnapshots = true }
}

// WithParallelFanOut runs static fan-out members concurrently. Members
// still read the same pre-batch snapshot and their deltas still merge in
// declared order, so results are identical to sequential execution as
// long as members write disjoint keys.
func WithParallelFanOut() Option {
	return func(c *invokeConfig) { c.parallelFanOut = true }
}
