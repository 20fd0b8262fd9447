package dsl

import "github.com/infinite-echoes/echoes/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	id     string
	fn     domain.NodeFunc
	reads  []string
	writes []string
	routes []domain.Route
}

// Do sets the node's executable unit.
func (n *NodeBuilder) Do(fn domain.NodeFunc) *NodeBuilder {
	n.fn = fn
	return n
}

// Reads declares the fields the node consumes.
func (n *NodeBuilder) Reads(fields ...string) *NodeBuilder {
	n.reads = append(n.reads, fields...)
	return n
}

// Writes restricts the fields the node may return.
func (n *NodeBuilder) Writes(fields ...string) *NodeBuilder {
	n.writes = append(n.writes, fields...)
	return n
}

// Go adds an unconditional edge to target (a node ID or domain.End).
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.routes = append(n.routes, domain.Route{Kind: domain.RouteUnconditional, To: target})
	return n
}

// Branch adds a conditional edge driven by decision.
func (n *NodeBuilder) Branch(decision domain.Decision, routes map[string]string) *NodeBuilder {
	n.routes = append(n.routes, domain.Route{Kind: domain.RouteConditional, Decision: decision, Targets: routes})
	return n
}

// Terminal marks the node as a terminal node (end of the flow).
// Declaring another edge on the same node is reported by Build.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.routes = append(n.routes, domain.Route{Kind: domain.RouteTerminal})
	return n
}
