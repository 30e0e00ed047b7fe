package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
)

// Context provides execution context to step functions and dispatchers.
// It extends context.Context with the services the surrounding application
// wired in, plus per-node metadata the executor fills in as it runs.
//
// Context is immutable; the executor derives a new one per node with the
// node name set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node
	// context. Never nil; defaults to slog.Default().
	Logger() *slog.Logger

	// LLM returns the LLM client, or nil if not configured.
	// Steps must check for nil before using.
	LLM() llm.Client

	// Checkpointer returns the snapshot store, or nil if not configured.
	Checkpointer() checkpoint.Store

	// RunID returns the unique identifier for this invocation.
	// Auto-generated if not configured.
	RunID() string

	// Node returns the name of the node currently executing.
	// Empty before execution starts.
	Node() string
}

// invokeContext is the internal Context implementation.
type invokeContext struct {
	context.Context

	logger       *slog.Logger
	llmClient    llm.Client
	checkpointer checkpoint.Store
	runID        string
	node         string
}

// Logger returns the configured logger.
func (c *invokeContext) Logger() *slog.Logger { return c.logger }

// LLM returns the LLM client.
func (c *invokeContext) LLM() llm.Client { return c.llmClient }

// Checkpointer returns the snapshot store.
func (c *invokeContext) Checkpointer() checkpoint.Store { return c.checkpointer }

// RunID returns the run identifier.
func (c *invokeContext) RunID() string { return c.runID }

// Node returns the current node name.
func (c *invokeContext) Node() string { return c.node }

// ContextOption configures a Context.
type ContextOption func(*invokeContext)

// WithLogger sets the logger. The executor enriches it with run_id and
// node fields per node.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *invokeContext) { c.logger = logger }
}

// WithLLM sets the LLM client available to steps.
func WithLLM(client llm.Client) ContextOption {
	return func(c *invokeContext) { c.llmClient = client }
}

// WithCheckpointer sets the snapshot store available to steps.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *invokeContext) { c.checkpointer = store }
}

// WithRunID sets the run identifier. A UUID is generated if unset.
func WithRunID(id string) ContextOption {
	return func(c *invokeContext) { c.runID = id }
}

// NewContext wraps a standard context with stategraph services.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(logger),
//	    stategraph.WithLLM(client))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ic := &invokeContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// withNode derives a per-node context with an enriched logger.
func (c *invokeContext) withNode(node string) *invokeContext {
	return &invokeContext{
		Context:      c.Context,
		logger:       c.logger.With("run_id", c.runID, "node", node),
		llmClient:    c.llmClient,
		checkpointer: c.checkpointer,
		runID:        c.runID,
		node:         node,
	}
}

// asInvokeContext normalizes any Context to the internal implementation
// so the executor can derive per-node contexts.
func asInvokeContext(ctx Context) *invokeContext {
	if ic, ok := ctx.(*invokeContext); ok {
		return ic
	}
	return &invokeContext{
		Context:      ctx,
		logger:       ctx.Logger(),
		llmClient:    ctx.LLM(),
		checkpointer: ctx.Checkpointer(),
		runID:        ctx.RunID(),
	}
}
