package stategraph

// fanOut is a validated static fan-out: the members execute as one batch
// against the pre-batch state, then execution continues at join.
type fanOut struct {
	members []string
	join    string
}

// Graph is a validated, executable workflow. Build it with Build; a
// Graph is immutable and safe for concurrent Invoke calls.
type Graph struct {
	nodes   map[string]Node
	order   []string
	entry   string
	fanouts map[string]fanOut
}

// Entry returns the entry node's name.
func (g *Graph) Entry() string {
	return g.entry
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Nodes returns all node names in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Node returns the named node declaration and whether it exists.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// HasNode reports whether the named node exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// IsTerminal reports whether the named node is terminal.
func (g *Graph) IsTerminal(name string) bool {
	return g.nodes[name].IsTerminal
}

// Successors returns every statically known successor of the named node:
// the declared targets for static transitions, every route target for
// conditional ones, nil for terminals.
func (g *Graph) Successors(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Transition.declaredSuccessors()...)
}

// FanOut returns the batch members and join node if the named node
// starts a static fan-out.
func (g *Graph) FanOut(name string) (members []string, join string, ok bool) {
	fo, ok := g.fanouts[name]
	if !ok {
		return nil, "", false
	}
	return append([]string(nil), fo.members...), fo.join, true
}
