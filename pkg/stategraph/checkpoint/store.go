package checkpoint

import (
	"errors"
	"time"
)

// Store persists snapshots for crash recovery.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a snapshot for a run at a specific node, overwriting
	// any existing snapshot for the same (runID, node) pair.
	Save(runID, node string, data []byte) error

	// Load retrieves a snapshot. Returns ErrNotFound if none exists.
	Load(runID, node string) ([]byte, error)

	// List returns metadata for all snapshots of a run, ordered by
	// sequence. A run with no snapshots yields an empty slice, not an
	// error.
	List(runID string) ([]Info, error)

	// DeleteRun removes every snapshot for a run. Removing a run with
	// no snapshots is not an error.
	DeleteRun(runID string) error

	// Close releases any underlying resources.
	Close() error
}

// Info is snapshot metadata, available without loading the full state.
type Info struct {
	RunID     string
	Node      string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
