package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/reviewflow/reviewflow/pkg/stategraph"
	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
)

// BenchmarkMemoryStore_Save measures in-memory snapshot save.
func BenchmarkMemoryStore_Save(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	data := largeSnapshotData(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("run-1", "node-1", data)
	}
}

// BenchmarkMemoryStore_Load measures in-memory snapshot load.
func BenchmarkMemoryStore_Load(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	data := largeSnapshotData(b)
	if err := store.Save("run-1", "node-1", data); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load("run-1", "node-1")
	}
}

// BenchmarkSQLiteStore_Save measures SQLite snapshot save.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	data := largeSnapshotData(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Save("run-1", nodeID(i%100), data)
	}
}

// BenchmarkSQLiteStore_Load measures SQLite snapshot load.
func BenchmarkSQLiteStore_Load(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	data := largeSnapshotData(b)
	if err := store.Save("run-1", "node-1", data); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Load("run-1", "node-1")
	}
}

// BenchmarkInvoke_WithSnapshots measures execution with snapshotting enabled.
func BenchmarkInvoke_WithSnapshots(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	graph := mustBuild(b, linearNodes(5))
	ctx := stategraph.NewContext(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, largeState(),
			stategraph.WithSnapshots(store, fmt.Sprintf("run-%d", i)),
		)
	}
}

// BenchmarkInvoke_WithoutSnapshots baseline without snapshotting.
func BenchmarkInvoke_WithoutSnapshots(b *testing.B) {
	graph := mustBuild(b, linearNodes(5))
	ctx := stategraph.NewContext(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, largeState())
	}
}

// BenchmarkStateMarshal measures state serialization overhead.
func BenchmarkStateMarshal(b *testing.B) {
	state := largeState()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(state)
	}
}

// BenchmarkStateUnmarshal measures state deserialization overhead.
func BenchmarkStateUnmarshal(b *testing.B) {
	data, err := json.Marshal(largeState())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s stategraph.State
		_ = json.Unmarshal(data, &s)
	}
}

// Helper functions

func largeState() stategraph.State {
	return stategraph.State{
		"shop_id":    "shop-42",
		"review_ids": []string{"r1", "r2", "r3", "r4", "r5"},
		"scores":     []int{81, 64, 92, 55, 70},
		"criteria": map[string]string{
			"quality":     "build and materials",
			"authentic":   "first-hand detail",
			"helpfulness": "actionable advice",
		},
		"top_n":     3,
		"finalized": false,
	}
}

func largeSnapshotData(b *testing.B) []byte {
	b.Helper()
	stateJSON, err := json.Marshal(largeState())
	if err != nil {
		b.Fatal(err)
	}
	snap := checkpoint.New("run-1", "node-1", 1, stateJSON, "node-2")
	data, err := snap.Marshal()
	if err != nil {
		b.Fatal(err)
	}
	return data
}

func createSQLiteStore(b *testing.B) (*checkpoint.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := checkpoint.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}
