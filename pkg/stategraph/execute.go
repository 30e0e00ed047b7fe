package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
	"github.com/reviewflow/reviewflow/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Invoke executes the graph from its entry node with the given initial
// state. It returns the final state and any error encountered.
//
// On success, the result is the state after the terminal node executed.
// On error, the result is the state at the point of failure, which is
// useful for debugging and for inspecting partial progress.
//
// Execution flow:
//  1. Start at the entry node
//  2. Check for cancellation and the step budget
//  3. Execute the current node, merge its delta into the state
//  4. Stop if the node is terminal; otherwise resolve the successor
//  5. Repeat
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background())
//	final, err := graph.Invoke(ctx, stategraph.State{"query": "good reviews"})
//	if err != nil {
//	    // final holds the state at the point of failure
//	}
func (g *Graph) Invoke(ctx Context, initial State, opts ...Option) (final State, invokeErr error) {
	if ctx == nil {
		return initial, ErrNilContext
	}

	cfg := defaultInvokeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ic := asInvokeContext(ctx)

	if cfg.snapshots != nil {
		if cfg.runID == "" {
			cfg.runID = ic.runID
		}
		if cfg.runID == "" {
			return initial, ErrRunIDRequired
		}
	}

	runID := cfg.runID
	if runID == "" {
		runID = ic.runID
	}

	start := time.Now()
	observability.LogInvokeStart(cfg.logger, runID, g.entry)

	var tracingCtx context.Context = ic
	var invokeSpan trace.Span
	if cfg.tracingEnabled {
		tracingCtx, invokeSpan = cfg.spans.StartInvokeSpan(ic, "stategraph", runID)
		defer func() {
			cfg.spans.EndSpanWithError(invokeSpan, invokeErr)
		}()
	}

	var steps int
	final, steps, invokeErr = g.run(tracingCtx, ic, initial, g.entry, &cfg)

	duration := time.Since(start)
	durationMs := float64(duration.Milliseconds())
	cfg.metrics.RecordInvocation(ic, invokeErr == nil, duration, steps)

	if invokeErr != nil {
		observability.LogInvokeError(cfg.logger, runID, invokeErr, durationMs, lastNode(invokeErr))
	} else {
		observability.LogInvokeComplete(cfg.logger, runID, durationMs, steps)
	}

	return final, invokeErr
}

// run is the execution loop, shared by Invoke and Resume. It starts at
// start and returns the final state along with the executed-node count.
func (g *Graph) run(tracingCtx context.Context, ic *invokeContext, initial State, start string, cfg *invokeConfig) (State, int, error) {
	state := initial.Clone()
	current := start
	steps := 0
	visited := make([]string, 0, min(g.Len(), 64))

	for {
		if err := cancelled(ic, cfg, current); err != nil {
			return state, steps, err
		}
		if steps >= cfg.stepLimit {
			return state, steps, &StepLimitError{Limit: cfg.stepLimit, Node: current, Visited: visited}
		}

		delta, err := g.runNode(tracingCtx, ic, cfg, current, state)
		if err != nil {
			return state, steps, err
		}
		steps++
		visited = append(visited, current)
		state = state.Merge(delta)
		observeStep(cfg, current, state, delta)

		if g.nodes[current].IsTerminal {
			if cfg.snapshots != nil {
				if err := g.saveSnapshot(ic, cfg, current, state, ""); err != nil {
					return state, steps, err
				}
			}
			return state, steps, nil
		}

		var next string
		if fo, ok := g.fanouts[current]; ok {
			state, err = g.runBatch(tracingCtx, ic, cfg, fo, state, &steps, &visited)
			if err != nil {
				return state, steps, err
			}
			next = fo.join
		} else {
			next, err = g.resolveNext(ic, current, state)
			if err != nil {
				return state, steps, err
			}
		}

		if cfg.snapshots != nil {
			if err := g.saveSnapshot(ic, cfg, current, state, next); err != nil {
				return state, steps, err
			}
		}

		current = next
	}
}

// runNode executes one node with full per-node observability: lifecycle
// logs, a span when tracing is enabled, and step metrics.
func (g *Graph) runNode(tracingCtx context.Context, ic *invokeContext, cfg *invokeConfig, name string, s State) (Delta, error) {
	observability.LogStepStart(cfg.logger, name)

	nodeTracingCtx := tracingCtx
	var span trace.Span
	if cfg.tracingEnabled {
		nodeTracingCtx, span = cfg.spans.StartNodeSpan(tracingCtx, name)
	}

	start := time.Now()
	delta, err := g.executeStep(ic, name, s)
	duration := time.Since(start)

	cfg.metrics.RecordStep(nodeTracingCtx, name, duration, err)
	if cfg.tracingEnabled {
		cfg.spans.EndSpanWithError(span, err)
	}

	if err != nil {
		observability.LogStepError(cfg.logger, name, err)
		return nil, err
	}
	observability.LogStepComplete(cfg.logger, name, float64(duration.Milliseconds()), len(delta))
	return delta, nil
}

// executeStep runs a node's step function with panic recovery.
func (g *Graph) executeStep(ic *invokeContext, name string, s State) (delta Delta, err error) {
	nodeCtx := ic.withNode(name)

	defer func() {
		if r := recover(); r != nil {
			delta = nil
			err = &PanicError{Node: name, Value: r, Stack: string(debug.Stack())}
		}
	}()

	delta, err = g.nodes[name].Step(nodeCtx, s)
	if err != nil {
		return nil, &NodeError{Node: name, Err: err}
	}
	return delta, nil
}

// runBatch executes a static fan-out. Every member reads the same
// pre-batch state; their deltas merge into it afterwards in declared
// order, so merge results do not depend on member timing. A member
// failure discards the whole batch and the state stays pre-batch.
func (g *Graph) runBatch(tracingCtx context.Context, ic *invokeContext, cfg *invokeConfig, fo fanOut, s State, steps *int, visited *[]string) (State, error) {
	// The budget must cover the whole batch up front: a partially merged
	// batch is never observable.
	if *steps+len(fo.members) > cfg.stepLimit {
		over := fo.members[cfg.stepLimit-*steps]
		return s, &StepLimitError{Limit: cfg.stepLimit, Node: over, Visited: *visited}
	}

	deltas := make([]Delta, len(fo.members))

	if cfg.parallelFanOut {
		var wg sync.WaitGroup
		errs := make([]error, len(fo.members))
		for i, member := range fo.members {
			wg.Add(1)
			go func(i int, member string) {
				defer wg.Done()
				deltas[i], errs[i] = g.runNode(tracingCtx, ic, cfg, member, s)
			}(i, member)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return s, err
			}
		}
	} else {
		for i, member := range fo.members {
			if err := cancelled(ic, cfg, member); err != nil {
				return s, err
			}
			d, err := g.runNode(tracingCtx, ic, cfg, member, s)
			if err != nil {
				return s, err
			}
			deltas[i] = d
		}
	}

	for i, member := range fo.members {
		s = s.Merge(deltas[i])
		*steps++
		*visited = append(*visited, member)
		observeStep(cfg, member, s, deltas[i])
	}
	return s, nil
}

// resolveNext determines the successor of a non-terminal, non-fan-out
// node. Conditional transitions dispatch on the current state; the label
// must be declared in the route table.
func (g *Graph) resolveNext(ic *invokeContext, name string, s State) (string, error) {
	t := g.nodes[name].Transition
	if !t.IsConditional() {
		return t.targets[0], nil
	}

	label := t.dispatch(ic.withNode(name), s)
	if label == "" {
		return "", &RoutingError{Node: name, Label: label, Err: ErrEmptyLabel}
	}
	next, ok := t.routes[label]
	if !ok {
		return "", &RoutingError{Node: name, Label: label, Err: ErrUnknownLabel}
	}
	return next, nil
}

// saveSnapshot persists the post-merge state after a completed node.
// Failures are logged and skipped unless strict snapshots are enabled.
func (g *Graph) saveSnapshot(ic *invokeContext, cfg *invokeConfig, node string, s State, next string) error {
	data, err := json.Marshal(s)
	if err != nil {
		if cfg.strictSnapshots {
			return &CheckpointError{Node: node, Op: "serialize", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, node, "serialize", err)
		return nil
	}

	cfg.sequence++
	raw, err := checkpoint.New(cfg.runID, node, cfg.sequence, data, next).Marshal()
	if err != nil {
		if cfg.strictSnapshots {
			return &CheckpointError{Node: node, Op: "marshal", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, node, "marshal", err)
		return nil
	}

	if err := cfg.snapshots.Save(cfg.runID, node, raw); err != nil {
		if cfg.strictSnapshots {
			return &CheckpointError{Node: node, Op: "save", Err: err}
		}
		observability.LogSnapshotError(cfg.logger, node, "save", err)
		return nil
	}

	observability.LogSnapshot(cfg.logger, node, len(raw))
	cfg.metrics.RecordSnapshot(ic, node, int64(len(raw)))
	return nil
}

// observeStep records a completed node in the trace and fires the
// per-step callback.
func observeStep(cfg *invokeConfig, node string, s State, d Delta) {
	if cfg.trace != nil {
		cfg.trace.record(node, d)
	}
	if cfg.onStep != nil {
		cfg.onStep(node, s)
	}
}

// cancelled checks cooperative cancellation before dispatching next.
// A step already running is never interrupted.
func cancelled(ic *invokeContext, cfg *invokeConfig, next string) error {
	select {
	case <-ic.Done():
		return &CancelledError{Node: next, Cause: ic.Err()}
	default:
	}
	if !cfg.deadline.IsZero() && time.Now().After(cfg.deadline) {
		return &CancelledError{Node: next, Cause: context.DeadlineExceeded}
	}
	return nil
}

// lastNode extracts the node name carried by an execution error.
func lastNode(err error) string {
	var (
		nodeErr   *NodeError
		panicErr  *PanicError
		routeErr  *RoutingError
		limitErr  *StepLimitError
		cancelErr *CancelledError
		cpErr     *CheckpointError
	)
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.Node
	case errors.As(err, &panicErr):
		return panicErr.Node
	case errors.As(err, &routeErr):
		return routeErr.Node
	case errors.As(err, &limitErr):
		return limitErr.Node
	case errors.As(err, &cancelErr):
		return cancelErr.Node
	case errors.As(err, &cpErr):
		return cpErr.Node
	}
	return ""
}
