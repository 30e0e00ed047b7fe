package stategraph

// StepEvent is one emission from Stream. Completed nodes arrive in
// execution order with the post-merge state; if the invocation fails, a
// final event carries the error with an empty node name.
type StepEvent struct {
	Node  string
	State State
	Err   error
}

// Stream executes the graph like Invoke but emits a StepEvent after each
// completed node. The channel closes when the invocation finishes, so
// ranging over it is the natural consumption pattern:
//
//	for ev := range graph.Stream(ctx, initial) {
//	    if ev.Err != nil {
//	        return ev.Err
//	    }
//	    log.Printf("completed %s", ev.Node)
//	}
//
// The channel is unbuffered; execution pauses until each event is
// received, so an abandoned channel stalls the run until ctx is
// cancelled.
func (g *Graph) Stream(ctx Context, initial State, opts ...Option) <-chan StepEvent {
	events := make(chan StepEvent)

	if ctx == nil {
		go func() {
			events <- StepEvent{Err: ErrNilContext}
			close(events)
		}()
		return events
	}

	go func() {
		defer close(events)

		opts = append(opts, func(c *invokeConfig) {
			c.onStep = func(node string, s State) {
				select {
				case events <- StepEvent{Node: node, State: s}:
				case <-ctx.Done():
				}
			}
		})

		if _, err := g.Invoke(ctx, initial, opts...); err != nil {
			select {
			case events <- StepEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return events
}
