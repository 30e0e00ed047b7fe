package stategraph

// StepFunc is the unit of work performed at a node.
// It receives the full current state and returns a partial update.
// Returning a nil Delta leaves the state unchanged.
//
// Side effects (database queries, LLM calls) are the step author's
// responsibility; the engine treats every step as opaque.
//
// Example:
//
//	func count(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
//	    return stategraph.Delta{"count": s.Int("count", 0) + 1}, nil
//	}
type StepFunc func(ctx Context, s State) (Delta, error)

// Dispatcher maps the current state to a routing label.
// The label must be a key of the route table declared with When;
// anything else fails the invocation with a RoutingError.
type Dispatcher func(ctx Context, s State) string

// Transition declares how execution continues after a node.
// Build it with To for static successors or When for conditional routing.
// The zero value means "no transition" and is only legal on terminal nodes.
type Transition struct {
	targets  []string
	dispatch Dispatcher
	routes   map[string]string
}

// To declares a static transition. A single target is a plain edge;
// multiple targets declare a sequential fan-out batch whose members must
// all converge on the same join node (validated by Build).
func To(targets ...string) Transition {
	return Transition{targets: append([]string(nil), targets...)}
}

// When declares a conditional transition: dispatch picks a label from the
// state, and routes maps each possible label to a successor node name.
func When(dispatch Dispatcher, routes map[string]string) Transition {
	copied := make(map[string]string, len(routes))
	for label, target := range routes {
		copied[label] = target
	}
	return Transition{dispatch: dispatch, routes: copied}
}

// IsConditional reports whether the transition routes through a dispatcher.
func (t Transition) IsConditional() bool {
	return t.dispatch != nil || t.routes != nil
}

// IsZero reports whether no transition was declared.
func (t Transition) IsZero() bool {
	return t.targets == nil && t.dispatch == nil && t.routes == nil
}

// Targets returns the declared static successors, or nil for conditional
// and zero transitions.
func (t Transition) Targets() []string {
	return append([]string(nil), t.targets...)
}

// Routes returns the declared label-to-successor table, or nil for static
// and zero transitions.
func (t Transition) Routes() map[string]string {
	if t.routes == nil {
		return nil
	}
	copied := make(map[string]string, len(t.routes))
	for label, target := range t.routes {
		copied[label] = target
	}
	return copied
}

// declaredSuccessors returns every node name this transition can reach,
// as far as is statically known.
func (t Transition) declaredSuccessors() []string {
	if t.dispatch != nil {
		succ := make([]string, 0, len(t.routes))
		for _, target := range t.routes {
			succ = append(succ, target)
		}
		return succ
	}
	return t.targets
}

// Node declares one named unit of the workflow: a step function plus the
// rule for where execution goes next. Nodes are plain values; Build
// validates the whole set and compiles it into an immutable Graph.
type Node struct {
	// Name uniquely identifies the node within one graph.
	Name string
	// Step is the work performed when the node executes.
	Step StepFunc
	// Transition declares the successor(s). Terminal nodes may omit it.
	Transition Transition
	// IsEntry marks the node execution starts at. Exactly one per graph.
	IsEntry bool
	// IsTerminal marks a node whose execution ends the invocation.
	// At least one terminal must be reachable from the entry.
	IsTerminal bool
}

// Entry declares the entry node.
func Entry(name string, step StepFunc, transition Transition) Node {
	return Node{Name: name, Step: step, Transition: transition, IsEntry: true}
}

// Of declares an ordinary interior node.
func Of(name string, step StepFunc, transition Transition) Node {
	return Node{Name: name, Step: step, Transition: transition}
}

// Terminal declares a terminal node. It executes like any other node and
// then ends the invocation, so it carries no transition.
func Terminal(name string, step StepFunc) Node {
	return Node{Name: name, Step: step, IsTerminal: true}
}
