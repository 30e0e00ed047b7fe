package stategraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph definition and building.
var (
	// ErrDuplicateNode indicates two declarations share a node name.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrUnknownNode indicates a transition references a name absent
	// from the node set.
	ErrUnknownNode = errors.New("transition references unknown node")

	// ErrNoEntry indicates no node was marked as the entry point.
	ErrNoEntry = errors.New("no entry node declared")

	// ErrMultipleEntries indicates more than one node was marked entry.
	ErrMultipleEntries = errors.New("multiple entry nodes declared")

	// ErrNoTerminal indicates no terminal node is reachable from entry.
	ErrNoTerminal = errors.New("no reachable terminal node")

	// ErrEmptyRoutes indicates a conditional transition declared an
	// empty route table.
	ErrEmptyRoutes = errors.New("conditional transition has no routes")

	// ErrSelfLoop indicates a non-terminal node whose only static
	// successor is itself. No state-dependent exit exists, so the loop
	// can never terminate.
	ErrSelfLoop = errors.New("unconditional self-loop")

	// ErrNoTransition indicates a non-terminal node without a transition.
	ErrNoTransition = errors.New("non-terminal node has no transition")

	// ErrNilStep indicates a node declared without a step function.
	ErrNilStep = errors.New("node has no step function")

	// ErrNilDispatcher indicates a conditional transition without a
	// dispatcher function.
	ErrNilDispatcher = errors.New("conditional transition has nil dispatcher")

	// ErrTerminalTransition indicates a terminal node that also declares
	// a transition. Terminals end the invocation, so a transition on one
	// is always a bug.
	ErrTerminalTransition = errors.New("terminal node declares a transition")

	// ErrBadFanOut indicates a static fan-out whose members do not
	// converge on a single join node.
	ErrBadFanOut = errors.New("fan-out members must share one join node")
)

// Sentinel errors for execution.
var (
	// ErrStepLimit indicates the execution step ceiling was reached
	// without hitting a terminal node.
	ErrStepLimit = errors.New("execution step limit exceeded")

	// ErrNilContext indicates Invoke was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrEmptyLabel indicates a dispatcher returned an empty string.
	ErrEmptyLabel = errors.New("dispatcher returned empty label")

	// ErrUnknownLabel indicates a dispatcher returned a label absent
	// from its declared route table.
	ErrUnknownLabel = errors.New("dispatcher returned unlisted label")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrNoCheckpoints indicates no checkpoints exist for the run.
	ErrNoCheckpoints = errors.New("no checkpoints found for run")

	// ErrCheckpointVersion indicates an incompatible checkpoint format.
	ErrCheckpointVersion = errors.New("checkpoint version mismatch")
)

// DefinitionError reports a structural problem detected at build time.
// Build joins one DefinitionError per violation, each naming the node and
// the rule that was broken. Always fatal to graph construction.
type DefinitionError struct {
	// Node is the offending node name (may be empty for graph-level
	// violations such as a missing entry).
	Node string
	// Err identifies the violated rule, usually one of the definition
	// sentinels above.
	Err error
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("graph definition: %v", e.Err)
	}
	return fmt.Sprintf("graph definition: node %q: %v", e.Node, e.Err)
}

// Unwrap returns the violated rule for errors.Is support.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// RoutingError reports a dispatcher result that cannot be resolved to a
// successor node. Fatal to the invocation.
type RoutingError struct {
	// Node is the node whose conditional transition failed.
	Node string
	// Label is what the dispatcher returned.
	Label string
	// Err is ErrEmptyLabel or ErrUnknownLabel.
	Err error
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from %q: label %q: %v", e.Node, e.Label, e.Err)
}

// Unwrap returns the underlying error for errors.Is support.
func (e *RoutingError) Unwrap() error {
	return e.Err
}

// NodeError wraps a step function's domain error with the node name.
// The engine never retries; the wrapped cause propagates to the caller.
type NodeError struct {
	// Node is the node whose step failed.
	Node string
	// Err is the underlying failure from the step function.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Err)
}

// Unwrap returns the step's error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a step function, including
// the stack trace at the point of panic.
type PanicError struct {
	// Node is the node whose step panicked.
	Node string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace captured during recovery.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %q panicked: %v", e.Node, e.Value)
}

// CancelledError reports cooperative cancellation, observed before a node
// dispatch. The node already executing is never forcibly interrupted.
type CancelledError struct {
	// Node is the node that was about to execute.
	Node string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled before node %q: %v", e.Node, e.Cause)
}

// Unwrap returns the cancellation cause for errors.Is support.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// StepLimitError reports that the step ceiling was reached without
// executing a terminal node, implying a conditional cycle that never
// resolves. Visited carries the executed node names for diagnosis.
type StepLimitError struct {
	// Limit is the configured step ceiling.
	Limit int
	// Node is the node that would have executed next.
	Node string
	// Visited is the executed node-name trace, in order.
	Visited []string
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("exceeded step limit (%d) before node %q", e.Limit, e.Node)
}

// Unwrap returns ErrStepLimit for errors.Is support.
func (e *StepLimitError) Unwrap() error {
	return ErrStepLimit
}

// CheckpointError wraps a checkpoint persistence failure. Only fatal when
// strict checkpointing is enabled.
type CheckpointError struct {
	// Node is the node whose checkpoint failed.
	Node string
	// Op is the failed operation ("serialize", "save").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %q: %v", e.Op, e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
