package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Registry maps names used in topology files to Go node functions and decisions.
// It is a pure lookup table, safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	nodes     map[string]domain.NodeFunc
	decisions map[string]domain.Decision
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:     make(map[string]domain.NodeFunc),
		decisions: make(map[string]domain.Decision),
	}
}

// RegisterNode adds a node function.
// If a function with the same name exists, it is overwritten.
func (r *Registry) RegisterNode(name string, fn domain.NodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[name] = fn
}

// RegisterDecision adds a decision under d.Name.
// If a decision with the same name exists, it is overwritten.
func (r *Registry) RegisterDecision(d domain.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[d.Name] = d
}

// Node looks up a node function by name.
func (r *Registry) Node(name string) (domain.NodeFunc, error) {
	r.mu.RLock()
	fn, ok := r.nodes[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("node function not found: %s", name)
	}
	return fn, nil
}

// Decision looks up a decision by name.
func (r *Registry) Decision(name string) (domain.Decision, error) {
	r.mu.RLock()
	d, ok := r.decisions[name]
	r.mu.RUnlock()

	if !ok {
		return domain.Decision{}, fmt.Errorf("decision not found: %s", name)
	}
	return d, nil
}

// Names returns the registered node and decision names, sorted.
func (r *Registry) Names() (nodes, decisions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.nodes {
		nodes = append(nodes, name)
	}
	for name := range r.decisions {
		decisions = append(decisions, name)
	}
	slices.Sort(nodes)
	slices.Sort(decisions)
	return nodes, decisions
}
