// Package observability provides structured logging, metrics, and
// distributed tracing for stategraph invocations.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds invocation context to a logger.
// Returns a new logger with run_id and node fields.
func EnrichLogger(logger *slog.Logger, runID, node string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node", node),
	)
}

// LogInvokeStart logs the start of a graph invocation.
func LogInvokeStart(logger *slog.Logger, runID, entry string) {
	if logger == nil {
		return
	}
	logger.Info("invocation starting",
		slog.String("run_id", runID),
		slog.String("entry", entry),
	)
}

// LogInvokeComplete logs successful invocation completion.
func LogInvokeComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("invocation completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", steps),
	)
}

// LogInvokeError logs invocation failure.
func LogInvokeError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("invocation failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogStepStart logs node execution start.
func LogStepStart(logger *slog.Logger, node string) {
	if logger == nil {
		return
	}
	logger.Debug("step starting",
		slog.String("node", node),
	)
}

// LogStepComplete logs successful node completion.
func LogStepComplete(logger *slog.Logger, node string, durationMs float64, deltaKeys int) {
	if logger == nil {
		return
	}
	logger.Debug("step completed",
		slog.String("node", node),
		slog.Float64("duration_ms", durationMs),
		slog.Int("delta_keys", deltaKeys),
	)
}

// LogStepError logs node execution error.
func LogStepError(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Error("step failed",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// LogSnapshot logs snapshot creation.
func LogSnapshot(logger *slog.Logger, node string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("node", node),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs snapshot failure (non-fatal unless strict).
func LogSnapshotError(logger *slog.Logger, node, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("node", node),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
