package stategraph

import (
	"errors"
	"log/slog"
)

// Build validates a set of node declarations and compiles them into an
// immutable Graph. Every violation is reported, not just the first:
// the returned error joins one DefinitionError per problem.
//
// Validation checks:
//  1. Node names must be unique and non-empty
//  2. Every node must have a step function
//  3. Exactly one node must be marked entry
//  4. Non-terminal nodes must declare a transition; terminals must not
//  5. Conditional transitions need a dispatcher and a non-empty route table
//  6. Every transition target must reference a declared node
//  7. A non-terminal node must not loop unconditionally onto itself
//  8. Fan-out members must be plain nodes whose single static successors
//     all name the same join node
//  9. At least one terminal must be reachable from the entry
//
// Nodes unreachable from the entry are logged as warnings but do not
// fail the build.
func Build(nodes ...Node) (*Graph, error) {
	var errs []error

	byName := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	entry := ""

	for _, n := range nodes {
		if n.Name == "" {
			errs = append(errs, &DefinitionError{Err: errors.New("node has empty name")})
			continue
		}
		if _, seen := byName[n.Name]; seen {
			errs = append(errs, &DefinitionError{Node: n.Name, Err: ErrDuplicateNode})
			continue
		}
		byName[n.Name] = n
		order = append(order, n.Name)

		if n.Step == nil {
			errs = append(errs, &DefinitionError{Node: n.Name, Err: ErrNilStep})
		}

		if n.IsEntry {
			if entry != "" {
				errs = append(errs, &DefinitionError{Node: n.Name, Err: ErrMultipleEntries})
			} else {
				entry = n.Name
			}
		}
	}

	if entry == "" {
		errs = append(errs, &DefinitionError{Err: ErrNoEntry})
	}

	// Per-node transition checks.
	for _, name := range order {
		n := byName[name]
		t := n.Transition

		if n.IsTerminal {
			if !t.IsZero() {
				errs = append(errs, &DefinitionError{Node: name, Err: ErrTerminalTransition})
			}
			continue
		}

		if t.IsZero() {
			errs = append(errs, &DefinitionError{Node: name, Err: ErrNoTransition})
			continue
		}

		if t.IsConditional() {
			if t.dispatch == nil {
				errs = append(errs, &DefinitionError{Node: name, Err: ErrNilDispatcher})
			}
			if len(t.routes) == 0 {
				errs = append(errs, &DefinitionError{Node: name, Err: ErrEmptyRoutes})
			}
		} else if len(t.targets) == 1 && t.targets[0] == name {
			// Conditional self-loops are fine (another label can exit);
			// a static one can never terminate.
			errs = append(errs, &DefinitionError{Node: name, Err: ErrSelfLoop})
		}

		for _, target := range t.declaredSuccessors() {
			if _, ok := byName[target]; !ok {
				errs = append(errs, &DefinitionError{Node: name, Err: ErrUnknownNode})
			}
		}
	}

	// Fan-out convergence.
	fanouts := make(map[string]fanOut)
	for _, name := range order {
		n := byName[name]
		if n.IsTerminal || n.Transition.IsConditional() || len(n.Transition.targets) < 2 {
			continue
		}
		fo, err := validateFanOut(name, n.Transition.targets, byName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fanouts[name] = fo
	}

	if entry != "" {
		if _, ok := byName[entry]; ok {
			if !terminalReachable(entry, byName) {
				errs = append(errs, &DefinitionError{Err: ErrNoTerminal})
			}
			warnUnreachable(entry, byName, order)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g := &Graph{
		nodes:   byName,
		order:   order,
		entry:   entry,
		fanouts: fanouts,
	}
	return g, nil
}

// MustBuild is Build that panics on error. Intended for graph wiring in
// package init or main, where a definition error is a programming bug.
func MustBuild(nodes ...Node) *Graph {
	g, err := Build(nodes...)
	if err != nil {
		panic("stategraph: " + err.Error())
	}
	return g
}

// validateFanOut checks that every member of a static multi-target
// transition is a plain node whose single static successor names the
// same join node. The parent itself cannot be a member or the join.
func validateFanOut(parent string, members []string, byName map[string]Node) (fanOut, *DefinitionError) {
	seen := make(map[string]bool, len(members))
	join := ""
	for _, member := range members {
		if member == parent || seen[member] {
			return fanOut{}, &DefinitionError{Node: parent, Err: ErrBadFanOut}
		}
		seen[member] = true

		m, ok := byName[member]
		if !ok {
			// Dangling reference already reported.
			return fanOut{}, &DefinitionError{Node: parent, Err: ErrBadFanOut}
		}
		t := m.Transition
		if m.IsTerminal || t.IsConditional() || len(t.targets) != 1 {
			return fanOut{}, &DefinitionError{Node: parent, Err: ErrBadFanOut}
		}
		target := t.targets[0]
		if join == "" {
			join = target
		} else if target != join {
			return fanOut{}, &DefinitionError{Node: parent, Err: ErrBadFanOut}
		}
	}
	if join == parent || seen[join] {
		return fanOut{}, &DefinitionError{Node: parent, Err: ErrBadFanOut}
	}
	return fanOut{members: append([]string(nil), members...), join: join}, nil
}

// terminalReachable reports whether any terminal node is reachable from
// start. Conditional transitions count every route target as reachable.
func terminalReachable(start string, byName map[string]Node) bool {
	canReach := make(map[string]bool, len(byName))
	for name, n := range byName {
		if n.IsTerminal {
			canReach[name] = true
		}
	}

	changed := true
	for changed {
		changed = false
		for name, n := range byName {
			if canReach[name] {
				continue
			}
			for _, succ := range n.Transition.declaredSuccessors() {
				if canReach[succ] {
					canReach[name] = true
					changed = true
					break
				}
			}
		}
	}

	return canReach[start]
}

// warnUnreachable logs nodes that no path from the entry can reach.
func warnUnreachable(entry string, byName map[string]Node, order []string) {
	reachable := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, succ := range byName[current].Transition.declaredSuccessors() {
			if _, ok := byName[succ]; ok && !reachable[succ] {
				reachable[succ] = true
				queue = append(queue, succ)
			}
		}
	}

	for _, name := range order {
		if !reachable[name] {
			slog.Warn("node is unreachable from entry", "node", name)
		}
	}
}
