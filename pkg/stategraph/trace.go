package stategraph

import "time"

// TraceEntry records one executed node: when it ran and what it changed.
type TraceEntry struct {
	// Node is the executed node's name.
	Node string
	// Timestamp is when the node finished executing.
	Timestamp time.Time
	// Delta is the partial update the step returned (nil for no-ops).
	Delta Delta
}

// Trace is the ordered record of an invocation: entry order equals actual
// execution order, fan-out members included. Collect one by passing
// WithTrace to Invoke. A Trace is owned by a single invocation and must
// not be shared across concurrent Invoke calls.
type Trace struct {
	Entries []TraceEntry
}

// Nodes returns the executed node names in order.
func (t *Trace) Nodes() []string {
	names := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		names[i] = e.Node
	}
	return names
}

// Visited reports whether the named node executed at least once.
func (t *Trace) Visited(node string) bool {
	for _, e := range t.Entries {
		if e.Node == node {
			return true
		}
	}
	return false
}

// Len returns the number of executed nodes.
func (t *Trace) Len() int {
	return len(t.Entries)
}

// record appends an entry.
func (t *Trace) record(node string, delta Delta) {
	t.Entries = append(t.Entries, TraceEntry{Node: node, Timestamp: time.Now().UTC(), Delta: delta})
}
