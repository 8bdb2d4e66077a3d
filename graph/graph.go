// Package graph provides a durable, checkpointed workflow engine with
// interrupt/resume support for human-in-the-loop stages.
package graph

import "fmt"

// End is the terminal marker. Routing to End completes the session.
const End = "__end__"

// Reducer merges a node's partial state update into the previous state.
//
// Reducers must be deterministic and side-effect free: given the same prev
// and delta they always produce the same result. The convention is to copy
// non-zero fields of delta over prev.
type Reducer[S any] func(prev, delta S) S

// Router picks the next node based on current state.
//
// Routers must be pure and deterministic, and must return one of the
// candidates declared when the router was added (or End if declared).
// A return outside the candidate set is a defect that fails the session.
type Router[S any] func(state S) string

// NodeOption configures a node at registration time.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	optional bool
}

// Optional marks a stage as non-essential: if it fails, the engine records
// a degraded history entry and continues, instead of failing the session.
// Retrieval-style enrichment stages are typical optional stages.
func Optional() NodeOption {
	return func(c *nodeConfig) {
		c.optional = true
	}
}

// edge is the single outgoing transition of a node: either a static target
// or a router with a declared candidate set.
type edge[S any] struct {
	to         string
	router     Router[S]
	candidates []string
}

// Graph is a validated, immutable workflow definition.
//
// A Graph is produced by Builder.Build and shared safely across engines and
// goroutines; nothing mutates it after construction.
type Graph[S any] struct {
	nodes map[string]Node[S]
	opts  map[string]nodeConfig
	edges map[string]edge[S]
	entry string
}

// Entry returns the entry node id.
func (g *Graph[S]) Entry() string {
	return g.entry
}

// optional reports whether the node was registered with Optional().
func (g *Graph[S]) optional(nodeID string) bool {
	return g.opts[nodeID].optional
}

// next resolves the node to enter after nodeID given the current state.
//
// Static edges resolve unconditionally. Routers are evaluated against the
// state; a result outside the declared candidate set is a GraphConfigError.
func (g *Graph[S]) next(nodeID string, state S) (string, error) {
	e, ok := g.edges[nodeID]
	if !ok {
		// Build guarantees every node has an outgoing edge; this guards
		// against a zero-value Graph.
		return "", &GraphConfigError{Message: "no route from node: " + nodeID}
	}

	if e.router == nil {
		return e.to, nil
	}

	target := e.router(state)
	for _, c := range e.candidates {
		if c == target {
			return target, nil
		}
	}
	return "", &GraphConfigError{
		Message: fmt.Sprintf("router from %s returned %q, not in declared candidates %v", nodeID, target, e.candidates),
	}
}

// Builder assembles a workflow graph.
//
// Builder methods record configuration; all validation happens in Build so
// nodes and edges can be declared in any order.
//
// Example:
//
//	b := graph.NewBuilder[MyState]()
//	b.AddNode("classify", classifyNode)
//	b.AddNode("draft", draftNode)
//	b.SetEntry("classify")
//	b.AddRouter("classify", routeIntent, "draft", graph.End)
//	b.AddEdge("draft", graph.End)
//	g, err := b.Build()
type Builder[S any] struct {
	nodes map[string]Node[S]
	opts  map[string]nodeConfig
	edges map[string]edge[S]
	entry string
	errs  []error
}

// NewBuilder creates an empty graph builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes: make(map[string]Node[S]),
		opts:  make(map[string]nodeConfig),
		edges: make(map[string]edge[S]),
	}
}

// AddNode registers a node in the workflow graph.
//
// Node ids must be unique and must not collide with the End marker.
func (b *Builder[S]) AddNode(nodeID string, node Node[S], opts ...NodeOption) *Builder[S] {
	switch {
	case nodeID == "":
		b.errs = append(b.errs, &GraphConfigError{Message: "node id cannot be empty"})
	case nodeID == End:
		b.errs = append(b.errs, &GraphConfigError{Message: "node id cannot be the End marker"})
	case node == nil:
		b.errs = append(b.errs, &GraphConfigError{Message: "node cannot be nil: " + nodeID})
	default:
		if _, exists := b.nodes[nodeID]; exists {
			b.errs = append(b.errs, &GraphConfigError{Message: "duplicate node id: " + nodeID})
			return b
		}
		var cfg nodeConfig
		for _, opt := range opts {
			opt(&cfg)
		}
		b.nodes[nodeID] = node
		b.opts[nodeID] = cfg
	}
	return b
}

// SetEntry designates the node execution starts at.
func (b *Builder[S]) SetEntry(nodeID string) *Builder[S] {
	b.entry = nodeID
	return b
}

// AddEdge declares a static transition: after from, always enter to.
// Use End as to for a terminal transition.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	if _, exists := b.edges[from]; exists {
		b.errs = append(b.errs, &GraphConfigError{Message: "node already has an outgoing edge: " + from})
		return b
	}
	b.edges[from] = edge[S]{to: to}
	return b
}

// AddRouter declares a conditional transition: after from, the router picks
// one of the declared candidates based on state. End may appear as a
// candidate.
func (b *Builder[S]) AddRouter(from string, router Router[S], candidates ...string) *Builder[S] {
	if router == nil {
		b.errs = append(b.errs, &GraphConfigError{Message: "router cannot be nil: " + from})
		return b
	}
	if len(candidates) == 0 {
		b.errs = append(b.errs, &GraphConfigError{Message: "router needs at least one candidate: " + from})
		return b
	}
	if _, exists := b.edges[from]; exists {
		b.errs = append(b.errs, &GraphConfigError{Message: "node already has an outgoing edge: " + from})
		return b
	}
	b.edges[from] = edge[S]{router: router, candidates: candidates}
	return b
}

// Build validates the assembled graph and returns it.
//
// Validation rules:
//   - an entry node is designated and registered
//   - every edge source and target refers to a registered node (or End)
//   - every node has exactly one outgoing edge or router
//   - every node is reachable from the entry
//
// The first violation found is returned as a *GraphConfigError; a graph
// that builds successfully cannot dead-end at runtime.
func (b *Builder[S]) Build() (*Graph[S], error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	if b.entry == "" {
		return nil, &GraphConfigError{Message: "entry node not set"}
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, &GraphConfigError{Message: "entry node not registered: " + b.entry}
	}

	for from, e := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, &GraphConfigError{Message: "edge from unknown node: " + from}
		}
		targets := e.candidates
		if e.router == nil {
			targets = []string{e.to}
		}
		for _, to := range targets {
			if to == End {
				continue
			}
			if _, ok := b.nodes[to]; !ok {
				return nil, &GraphConfigError{Message: fmt.Sprintf("edge from %s targets unknown node: %s", from, to)}
			}
		}
	}

	for nodeID := range b.nodes {
		if _, ok := b.edges[nodeID]; !ok {
			return nil, &GraphConfigError{Message: "node has no outgoing edge: " + nodeID}
		}
	}

	if unreachable := b.unreachableFrom(b.entry); unreachable != "" {
		return nil, &GraphConfigError{Message: "node unreachable from entry: " + unreachable}
	}

	return &Graph[S]{
		nodes: b.nodes,
		opts:  b.opts,
		edges: b.edges,
		entry: b.entry,
	}, nil
}

// unreachableFrom walks the graph from entry and returns the id of a node
// the walk never visits, or "" when all nodes are reachable.
func (b *Builder[S]) unreachableFrom(entry string) string {
	visited := map[string]bool{entry: true}
	frontier := []string{entry}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		e, ok := b.edges[current]
		if !ok {
			continue
		}
		targets := e.candidates
		if e.router == nil {
			targets = []string{e.to}
		}
		for _, to := range targets {
			if to == End || visited[to] {
				continue
			}
			visited[to] = true
			frontier = append(frontier, to)
		}
	}

	for nodeID := range b.nodes {
		if !visited[nodeID] {
			return nodeID
		}
	}
	return ""
}
