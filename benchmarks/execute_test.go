package benchmarks

import (
	"context"
	"testing"

	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

// BenchmarkInvoke_Linear_5 runs a 5-node linear graph.
func BenchmarkInvoke_Linear_5(b *testing.B) {
	graph := mustBuild(b, linearNodes(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_Linear_10 runs a 10-node linear graph.
func BenchmarkInvoke_Linear_10(b *testing.B) {
	graph := mustBuild(b, linearNodes(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_Linear_50 runs a 50-node linear graph.
func BenchmarkInvoke_Linear_50(b *testing.B) {
	graph := mustBuild(b, linearNodes(50))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_Linear_100 runs a 100-node linear graph.
func BenchmarkInvoke_Linear_100(b *testing.B) {
	graph := mustBuild(b, linearNodes(100))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_Branching runs a graph with conditional transitions.
func BenchmarkInvoke_Branching(b *testing.B) {
	graph := mustBuild(b, branchingNodes())
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{"value": i})
	}
}

// BenchmarkInvoke_Loop runs a looping graph (3 iterations).
func BenchmarkInvoke_Loop(b *testing.B) {
	graph := mustBuild(b, loopNodes(3))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_Loop_10 runs a looping graph (10 iterations).
func BenchmarkInvoke_Loop_10(b *testing.B) {
	graph := mustBuild(b, loopNodes(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_FanOut_5 runs a 5-member fan-out in declared order.
func BenchmarkInvoke_FanOut_5(b *testing.B) {
	graph := mustBuild(b, fanOutNodes(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{})
	}
}

// BenchmarkInvoke_FanOut_5_Parallel runs the same fan-out concurrently.
func BenchmarkInvoke_FanOut_5_Parallel(b *testing.B) {
	graph := mustBuild(b, fanOutNodes(5))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Invoke(ctx, stategraph.State{}, stategraph.WithParallelFanOut())
	}
}

// BenchmarkInvoke_WithTrace measures trace collection overhead.
func BenchmarkInvoke_WithTrace(b *testing.B) {
	graph := mustBuild(b, linearNodes(10))
	ctx := stategraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var trace stategraph.Trace
		_, _ = graph.Invoke(ctx, stategraph.State{}, stategraph.WithTrace(&trace))
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		stategraph.NewContext(bg)
	}
}

// BenchmarkStateMerge measures a 10-key delta merge into a 10-key state.
func BenchmarkStateMerge(b *testing.B) {
	state := stategraph.State{}
	delta := stategraph.Delta{}
	for i := 0; i < 10; i++ {
		state[nodeID(i)] = i
		delta[nodeID(i+5)] = i
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = state.Merge(delta)
	}
}

// Helper functions

func loopNodes(maxIterations int) []stategraph.Node {
	loopStep := func(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
		return stategraph.Delta{"n": s.Int("n", 0) + 1}, nil
	}

	router := func(ctx stategraph.Context, s stategraph.State) string {
		if s.Int("n", 0) >= maxIterations {
			return "done"
		}
		return "again"
	}

	return []stategraph.Node{
		stategraph.Entry("loop", loopStep, stategraph.When(router, map[string]string{
			"again": "loop",
			"done":  "done",
		})),
		stategraph.Terminal("done", noopStep),
	}
}
