// Package graph provides a small state graph engine: named nodes transform a
// state value, static and conditional edges wire them together, and compiled
// graphs run a single-threaded step loop with optional per-thread
// checkpointing. States are treated as immutable snapshots; nodes return new
// values rather than mutating shared data.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/certpilot/certpilot/core"
	"github.com/certpilot/certpilot/logging"
)

// Reserved node names marking graph entry and termination.
const (
	Start = "__start__"
	End   = "__end__"
)

// ErrMaxSteps is returned when an invocation exceeds the step budget,
// which indicates a cycle or a runaway conditional edge.
var ErrMaxSteps = errors.New("graph: max steps exceeded")

// NodeFunc transforms the state. Implementations must not mutate the input.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc inspects the state and returns the name of the outgoing path.
type RouterFunc[S any] func(ctx context.Context, state S) (string, error)

type conditionalEdge[S any] struct {
	route   RouterFunc[S]
	targets map[string]string // path name -> node name (or End)
}

// StateGraph is a mutable graph builder. Call Compile to obtain a runnable graph.
type StateGraph[S any] struct {
	nodes       map[string]NodeFunc[S]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	err         error
}

// NewStateGraph creates an empty builder.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:       make(map[string]NodeFunc[S]),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
	}
}

// AddNode registers a named node. Reserved and duplicate names are rejected
// at Compile time.
func (g *StateGraph[S]) AddNode(name string, fn NodeFunc[S]) *StateGraph[S] {
	if name == Start || name == End {
		g.fail(fmt.Errorf("graph: node name %q is reserved", name))
		return g
	}
	if _, exists := g.nodes[name]; exists {
		g.fail(fmt.Errorf("graph: duplicate node %q", name))
		return g
	}
	if fn == nil {
		g.fail(fmt.Errorf("graph: node %q has nil func", name))
		return g
	}
	g.nodes[name] = fn
	return g
}

// AddEdge wires an unconditional transition from one node to another.
// Use Start as the source to mark the entry node and End as the target to
// terminate the run.
func (g *StateGraph[S]) AddEdge(from, to string) *StateGraph[S] {
	if _, exists := g.edges[from]; exists {
		g.fail(fmt.Errorf("graph: node %q already has an outgoing edge", from))
		return g
	}
	if _, exists := g.conditional[from]; exists {
		g.fail(fmt.Errorf("graph: node %q already has a conditional edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges wires a router on the given node. The router's returned
// path name is resolved through pathMap to the next node (or End).
func (g *StateGraph[S]) AddConditionalEdges(from string, route RouterFunc[S], pathMap map[string]string) *StateGraph[S] {
	if _, exists := g.edges[from]; exists {
		g.fail(fmt.Errorf("graph: node %q already has an outgoing edge", from))
		return g
	}
	if _, exists := g.conditional[from]; exists {
		g.fail(fmt.Errorf("graph: node %q already has a conditional edge", from))
		return g
	}
	if route == nil || len(pathMap) == 0 {
		g.fail(fmt.Errorf("graph: conditional edge on %q needs a router and a path map", from))
		return g
	}
	g.conditional[from] = conditionalEdge[S]{route: route, targets: pathMap}
	return g
}

func (g *StateGraph[S]) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

// CompileOptions configure a compiled graph.
type CompileOptions[S any] struct {
	// Checkpointer persists the latest state per thread; nil disables
	// checkpointing.
	Checkpointer Checkpointer[S]
	// Reducer merges a previously checkpointed state with the incoming
	// invocation state when a thread resumes. Defaults to keeping the
	// incoming state.
	Reducer func(prior, incoming S) S
	// MaxSteps bounds node executions per invocation.
	MaxSteps int
	Logger   logging.Logger
}

// CompiledGraph is an immutable, runnable graph.
type CompiledGraph[S any] struct {
	nodes       map[string]NodeFunc[S]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
	entry       string
	opts        CompileOptions[S]
}

// Compile validates the graph shape and returns a runnable graph. Every node
// must be reachable for execution to terminate: the entry edge from Start
// must exist, every node needs exactly one outgoing (static or conditional)
// edge, and every edge target must name a known node or End.
func (g *StateGraph[S]) Compile(optFns ...func(o *CompileOptions[S])) (*CompiledGraph[S], error) {
	if g.err != nil {
		return nil, g.err
	}

	opts := CompileOptions[S]{MaxSteps: 25, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	entry, ok := g.edges[Start]
	if !ok {
		return nil, errors.New("graph: missing entry edge from Start")
	}

	check := func(from, to string) error {
		if to == End {
			return nil
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("graph: edge from %q targets unknown node %q", from, to)
		}
		return nil
	}
	for from, to := range g.edges {
		if err := check(from, to); err != nil {
			return nil, err
		}
	}
	for from, ce := range g.conditional {
		for path, to := range ce.targets {
			if err := check(from+"/"+path, to); err != nil {
				return nil, err
			}
		}
	}
	for name := range g.nodes {
		_, hasEdge := g.edges[name]
		_, hasCond := g.conditional[name]
		if !hasEdge && !hasCond {
			return nil, fmt.Errorf("graph: node %q has no outgoing edge", name)
		}
	}

	return &CompiledGraph[S]{
		nodes:       g.nodes,
		edges:       g.edges,
		conditional: g.conditional,
		entry:       entry,
		opts:        opts,
	}, nil
}

// InvokeOptions configure a single invocation.
type InvokeOptions struct {
	// ThreadID namespaces checkpointed state; empty disables checkpointing
	// for this invocation.
	ThreadID string
}

// Invoke runs the graph to completion from the entry node, returning the
// final state. When a thread ID is given and a checkpoint exists, the prior
// state is merged into the incoming one via the configured reducer; the state
// is checkpointed again after every node.
func (c *CompiledGraph[S]) Invoke(ctx context.Context, state S, optFns ...func(o *InvokeOptions)) (S, error) {
	var invokeOpts InvokeOptions
	for _, fn := range optFns {
		fn(&invokeOpts)
	}

	logger := logging.OrNoOp(c.opts.Logger)
	runID := core.NewID()

	threadID := invokeOpts.ThreadID
	if threadID != "" && c.opts.Checkpointer != nil {
		prior, ok, err := c.opts.Checkpointer.Get(ctx, threadID)
		if err != nil {
			return state, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && c.opts.Reducer != nil {
			state = c.opts.Reducer(prior, state)
		}
	}

	current := c.entry
	for steps := 0; current != End; steps++ {
		if steps >= c.opts.MaxSteps {
			return state, ErrMaxSteps
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node := c.nodes[current]
		logger.Debug("graph.node.start", "run_id", runID, "node", current)

		next, err := node(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %q: %w", current, err)
		}
		state = next

		if threadID != "" && c.opts.Checkpointer != nil {
			if err := c.opts.Checkpointer.Put(ctx, threadID, state); err != nil {
				return state, fmt.Errorf("save checkpoint: %w", err)
			}
		}

		current, err = c.next(ctx, current, state)
		if err != nil {
			return state, err
		}
		logger.Debug("graph.node.done", "run_id", runID, "next", current)
	}
	return state, nil
}

// next resolves the outgoing edge of the given node against the state.
func (c *CompiledGraph[S]) next(ctx context.Context, from string, state S) (string, error) {
	if to, ok := c.edges[from]; ok {
		return to, nil
	}
	ce := c.conditional[from]
	path, err := ce.route(ctx, state)
	if err != nil {
		return "", fmt.Errorf("router on %q: %w", from, err)
	}
	to, ok := ce.targets[path]
	if !ok {
		return "", fmt.Errorf("graph: router on %q returned unmapped path %q", from, path)
	}
	return to, nil
}
