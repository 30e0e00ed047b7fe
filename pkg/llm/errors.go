package llm

import (
	"fmt"
	"strings"
)

// Error wraps a provider failure with the operation that produced it and
// whether retrying may help. The engine never retries on its own; callers
// that want a retry policy check Retryable and wrap their step function.
type Error struct {
	// Op is the operation that failed ("complete", "moderate").
	Op string
	// Err is the underlying failure.
	Err error
	// Retryable is true for transient failures (rate limits, timeouts,
	// overloaded upstreams).
	Retryable bool
}

// NewError creates a provider error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// retryable classifies an error message or HTTP status as transient.
func retryable(status int, msg string) bool {
	switch status {
	case 408, 429, 500, 502, 503, 529:
		return true
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "overloaded")
}
