package domain

import "context"

// NodeFunc is the executable unit of a node. It receives a read-only view of
// the run and returns the fields it wants to change. It may block on external
// calls and should honour ctx.
type NodeFunc func(ctx context.Context, state View) (Update, error)

// Node is a named unit of work in the graph.
type Node struct {
	ID  string
	Run NodeFunc

	// Reads lists the fields the node consumes. Informational, validated at compile time.
	Reads []string

	// Writes restricts the fields the node may return. Empty means any schema field.
	Writes []string
}

// CanWrite reports whether field is allowed in the node's output.
func (n Node) CanWrite(field string) bool {
	if len(n.Writes) == 0 {
		return true
	}
	for _, w := range n.Writes {
		if w == field {
			return true
		}
	}
	return false
}
