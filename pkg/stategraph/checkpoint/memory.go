package checkpoint

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory. Useful for tests and
// short-lived runs; everything is lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]map[string]memorySnapshot // runID -> node -> snapshot
	closed bool
}

type memorySnapshot struct {
	data      []byte
	sequence  int
	timestamp time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string]memorySnapshot)}
}

// Save implements Store.
func (m *MemoryStore) Save(runID, node string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	run := m.runs[runID]
	if run == nil {
		run = make(map[string]memorySnapshot)
		m.runs[runID] = run
	}

	seq := 1
	for _, snap := range run {
		if snap.sequence >= seq {
			seq = snap.sequence + 1
		}
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	run[node] = memorySnapshot{data: stored, sequence: seq, timestamp: time.Now().UTC()}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID, node string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	snap, ok := m.runs[runID][node]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(snap.data))
	copy(out, snap.data)
	return out, nil
}

// List implements Store.
func (m *MemoryStore) List(runID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	run := m.runs[runID]
	infos := make([]Info, 0, len(run))
	for node, snap := range run {
		infos = append(infos, Info{
			RunID:     runID,
			Node:      node,
			Sequence:  snap.sequence,
			Timestamp: snap.timestamp,
			Size:      int64(len(snap.data)),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Sequence < infos[j].Sequence
	})
	return infos, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.runs, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}
