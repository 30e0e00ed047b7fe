package stategraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
)

// Resume continues execution from the latest snapshot of a run. It loads
// the most recent snapshot, restores the state, and executes from the
// node that was scheduled next. Snapshot persistence stays enabled for
// the resumed portion, continuing the run's sequence numbers.
//
// If the run already finished, Resume returns its final state without
// executing anything.
//
// Example:
//
//	// Previous run crashed after "score"; Resume continues at "fuse"
//	// with the state "score" checkpointed.
//	final, err := graph.Resume(ctx, store, "run-123")
func (g *Graph) Resume(ctx Context, store checkpoint.Store, runID string, opts ...Option) (State, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	infos, err := store.List(runID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
	}

	latest := infos[len(infos)-1]
	data, err := store.Load(runID, latest.Node)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return g.resumeFromSnapshot(ctx, store, runID, data, opts)
}

// ResumeFrom continues execution from the snapshot taken at a specific
// node rather than the latest one. Snapshots persisted after that node
// in the original run are left in place and will be overwritten as the
// resumed run passes the same nodes again.
func (g *Graph) ResumeFrom(ctx Context, store checkpoint.Store, runID, node string, opts ...Option) (State, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	data, err := store.Load(runID, node)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s at node %s", ErrNoCheckpoints, runID, node)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return g.resumeFromSnapshot(ctx, store, runID, data, opts)
}

// resumeFromSnapshot restores state from a serialized snapshot and runs
// the graph from the snapshot's scheduled next node.
func (g *Graph) resumeFromSnapshot(ctx Context, store checkpoint.Store, runID string, data []byte, opts []Option) (State, error) {
	snap, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersion, snap.Version, checkpoint.Version)
	}

	var state State
	if err := json.Unmarshal(snap.State, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot state: %w", err)
	}

	// An empty next node means the run reached a terminal.
	if snap.Next == "" {
		return state, nil
	}
	if !g.HasNode(snap.Next) {
		return nil, fmt.Errorf("snapshot schedules unknown node %q: %w", snap.Next, ErrUnknownNode)
	}

	cfg := defaultInvokeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.snapshots = store
	cfg.runID = runID
	cfg.sequence = snap.Sequence

	ic := asInvokeContext(ctx)
	final, _, err := g.run(ic, ic, state, snap.Next, &cfg)
	return final, err
}
