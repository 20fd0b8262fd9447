package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// NodeOption configures a node registration.
type NodeOption func(*domain.Node)

// Reads declares the fields a node consumes.
func Reads(fields ...string) NodeOption {
	return func(n *domain.Node) {
		n.Reads = append(n.Reads, fields...)
	}
}

// Writes declares the only fields a node may return.
func Writes(fields ...string) NodeOption {
	return func(n *domain.Node) {
		n.Writes = append(n.Writes, fields...)
	}
}

// Builder accumulates declarations. It is not safe for concurrent use.
// Errors are deferred to Compile so callers can chain declarations.
type Builder struct {
	schema   *domain.Schema
	nodes    []domain.Node
	index    map[string]int
	routes   map[string]domain.Route
	sources  []string
	problems []string
}

// NewBuilder creates a builder for graphs over schema.
func NewBuilder(schema *domain.Schema) *Builder {
	return &Builder{
		schema: schema,
		index:  make(map[string]int),
		routes: make(map[string]domain.Route),
	}
}

// Register adds a node.
func (b *Builder) Register(id string, fn domain.NodeFunc, opts ...NodeOption) *Builder {
	node := domain.Node{ID: id, Run: fn}
	for _, opt := range opts {
		opt(&node)
	}

	if _, dup := b.index[id]; dup {
		b.problems = append(b.problems, fmt.Sprintf("node %q registered more than once", id))
		return b
	}
	b.index[id] = len(b.nodes)
	b.nodes = append(b.nodes, node)
	return b
}

// SetUnconditionalEdge routes from to destination (a node ID or domain.End).
func (b *Builder) SetUnconditionalEdge(from, destination string) *Builder {
	return b.setRoute(from, domain.Route{Kind: domain.RouteUnconditional, To: destination})
}

// SetConditionalEdge routes from through decision. routes maps every label the
// decision may return to a node ID or domain.End.
func (b *Builder) SetConditionalEdge(from string, decision domain.Decision, routes map[string]string) *Builder {
	decision.Labels = slices.Clone(decision.Labels)
	decision.Reads = slices.Clone(decision.Reads)
	return b.setRoute(from, domain.Route{
		Kind:     domain.RouteConditional,
		Decision: decision,
		Targets:  maps.Clone(routes),
	})
}

// SetTerminal marks from as a terminal node explicitly. Nodes without any
// edge declaration are terminal as well.
func (b *Builder) SetTerminal(from string) *Builder {
	return b.setRoute(from, domain.Route{Kind: domain.RouteTerminal})
}

func (b *Builder) setRoute(from string, r domain.Route) *Builder {
	if _, dup := b.routes[from]; dup {
		b.problems = append(b.problems, fmt.Sprintf("node %q has more than one outgoing edge declaration", from))
		return b
	}
	b.routes[from] = r
	b.sources = append(b.sources, from)
	return b
}
