package graph

import (
	"slices"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Graph is a compiled, immutable graph definition.
type Graph struct {
	schema *domain.Schema
	entry  string
	nodes  map[string]domain.Node
	routes map[string]domain.Route
	order  []string
}

// NodeInfo is a read-only description of a node and its outgoing route,
// used by renderers and transports.
type NodeInfo struct {
	ID       string            `json:"id"`
	Reads    []string          `json:"reads,omitempty"`
	Writes   []string          `json:"writes,omitempty"`
	Route    domain.RouteKind  `json:"route"`
	To       string            `json:"to,omitempty"`
	Decision string            `json:"decision,omitempty"`
	Targets  map[string]string `json:"targets,omitempty"`
}

// Entry returns the entry node ID.
func (g *Graph) Entry() string {
	return g.entry
}

// Schema returns the RunState schema the graph was compiled against.
func (g *Graph) Schema() *domain.Schema {
	return g.schema
}

// Node looks up a node by ID.
func (g *Graph) Node(id string) (domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Route returns the outgoing route of a node. Nodes without a declaration are terminal.
func (g *Graph) Route(id string) domain.Route {
	if r, ok := g.routes[id]; ok {
		return r
	}
	return domain.Route{Kind: domain.RouteTerminal}
}

// Nodes returns node IDs in registration order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Describe lists every node with its route in registration order.
func (g *Graph) Describe() []NodeInfo {
	out := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		r := g.Route(id)
		info := NodeInfo{
			ID:     id,
			Reads:  slices.Clone(n.Reads),
			Writes: slices.Clone(n.Writes),
			Route:  r.Kind,
		}
		switch r.Kind {
		case domain.RouteUnconditional:
			info.To = r.To
		case domain.RouteConditional:
			info.Decision = r.Decision.Name
			info.Targets = make(map[string]string, len(r.Targets))
			for k, v := range r.Targets {
				info.Targets[k] = v
			}
		}
		out = append(out, info)
	}
	return out
}

// successors returns the node destinations of id, skipping End.
func (g *Graph) successors(id string) []string {
	var out []string
	for _, to := range g.Route(id).Destinations() {
		if to != domain.End {
			out = append(out, to)
		}
	}
	return out
}

func (g *Graph) unreachable() []string {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.successors(current) {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []string
	for _, id := range g.order {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// cycles returns one path per back edge found by a depth-first walk, each
// starting and ending at the same node.
func (g *Graph) cycles() [][]string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	var found [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range g.successors(id) {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := slices.Index(stack, next)
				cycle := append(slices.Clone(stack[start:]), next)
				found = append(found, cycle)
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range g.order {
		if color[id] == white {
			visit(id)
		}
	}
	return found
}
