package dsl

import (
	"fmt"

	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/graph"
)

// Builder manages the graph construction.
type Builder struct {
	schema *domain.Schema
	nodes  map[string]*NodeBuilder
	order  []string
}

// New creates a new graph builder over schema.
func New(schema *domain.Schema) *Builder {
	return &Builder{
		schema: schema,
		nodes:  make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{id: id}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the graph starting at entry.
func (b *Builder) Build(entry string, opts ...graph.CompileOption) (*graph.Graph, error) {
	gb := graph.NewBuilder(b.schema)
	for _, id := range b.order {
		nb := b.nodes[id]
		gb.Register(id, nb.fn, graph.Reads(nb.reads...), graph.Writes(nb.writes...))
		for _, r := range nb.routes {
			switch r.Kind {
			case domain.RouteTerminal:
				gb.SetTerminal(id)
			case domain.RouteUnconditional:
				gb.SetUnconditionalEdge(id, r.To)
			case domain.RouteConditional:
				gb.SetConditionalEdge(id, r.Decision, r.Targets)
			}
		}
	}

	g, err := gb.Compile(entry, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}
