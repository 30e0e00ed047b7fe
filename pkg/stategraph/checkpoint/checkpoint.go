// Package checkpoint persists per-node state snapshots so an interrupted
// workflow run can be resumed from the last completed node.
package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current snapshot format version. Increment on breaking
// changes to the Snapshot structure.
const Version = 1

// Snapshot is the persisted record of one completed node execution.
// It holds everything resume needs: the merged state after the node ran
// and the name of the node scheduled next. An empty Next means the run
// finished at a terminal node.
type Snapshot struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Node      string    `json:"node"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	State json.RawMessage `json:"state"`
	Next  string          `json:"next,omitempty"`
}

// New creates a snapshot for a completed node. State must already be
// JSON-serialized.
func New(runID, node string, sequence int, state []byte, next string) *Snapshot {
	return &Snapshot{
		Version:   Version,
		RunID:     runID,
		Node:      node,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		Next:      next,
	}
}

// Marshal serializes the snapshot to JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
