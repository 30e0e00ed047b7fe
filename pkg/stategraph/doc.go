/*
Package stategraph provides graph-based orchestration for LLM workflows.

# Overview

stategraph is a library for declaring directed workflow graphs where
nodes perform work against a shared open state and transitions define
flow. It is built for orchestrating LLM-powered pipelines with
build-time validation, conditional branching, fan-out batches, execution
tracing, and crash recovery via snapshots.

# Basic Usage

Declare nodes, build, invoke:

	fetch := func(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	    return stategraph.Delta{"reviews": loadReviews()}, nil
	}
	rank := func(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	    return stategraph.Delta{"best": pickBest(s)}, nil
	}

	graph, err := stategraph.Build(
	    stategraph.Entry("fetch", fetch, stategraph.To("rank")),
	    stategraph.Terminal("rank", rank),
	)
	if err != nil {
	    log.Fatal(err)
	}

	ctx := stategraph.NewContext(context.Background())
	final, err := graph.Invoke(ctx, stategraph.State{"query": "recent"})

State is an open map; each step returns a Delta that merges into it with
last-writer-wins semantics at the top-level key.

# Conditional Branching

Use When for decision points. The dispatcher returns a label which the
route table maps to a successor:

	stategraph.Of("moderate", moderate, stategraph.When(
	    func(ctx stategraph.Context, s stategraph.State) string {
	        if s.Bool("flagged", false) {
	            return "reject"
	        }
	        return "accept"
	    },
	    map[string]string{
	        "accept": "publish",
	        "reject": "discard",
	    },
	))

Labels outside the route table fail the invocation with a RoutingError;
the table is also what Build validates, so every destination is known
statically.

# Loops

Conditional routes may point back to earlier nodes. Cycles are protected
by a step limit (default 10000, see WithStepLimit) so a dispatcher that
never chooses an exit label fails instead of spinning forever.

# Fan-Out

A static transition with multiple targets declares a batch: every member
reads the same pre-batch state and their deltas merge back in declared
order, after which execution continues at the members' shared join node.
Build rejects fan-outs whose members do not converge.

	stategraph.Of("score", score, stategraph.To("quality", "authenticity", "helpfulness")),
	stategraph.Of("quality", scoreQuality, stategraph.To("fuse")),
	stategraph.Of("authenticity", scoreAuthenticity, stategraph.To("fuse")),
	stategraph.Of("helpfulness", scoreHelpfulness, stategraph.To("fuse")),

# Crash Recovery

Pass WithSnapshots to persist the state after every completed node, then
Resume to continue an interrupted run from its latest snapshot:

	store, _ := checkpoint.NewSQLiteStore("runs.db")
	final, err := graph.Invoke(ctx, initial,
	    stategraph.WithSnapshots(store, "run-123"))
	// after a crash:
	final, err = graph.Resume(ctx, store, "run-123")
*/
package stategraph
