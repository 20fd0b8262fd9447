package domain

import (
	"fmt"
	"slices"
)

// End is the terminal marker. Routing to End completes the run.
const End = "__end__"

// DecisionFunc picks a label from the state. It must be pure: no I/O, no blocking.
type DecisionFunc func(state View) string

// Decision is a conditional edge's decision function plus the labels it may return.
type Decision struct {
	Name string

	// Labels is the full set of values Func may return. When empty, the keys
	// of the routing table are taken as the label set.
	Labels []string

	// Reads lists the fields Func consumes; validated at compile time.
	Reads []string

	Func DecisionFunc
}

// RouteKind tells how a node hands control to its successor.
type RouteKind string

const (
	RouteTerminal      RouteKind = "terminal"
	RouteUnconditional RouteKind = "unconditional"
	RouteConditional   RouteKind = "conditional"
)

// Route is the outgoing edge declaration of one node.
type Route struct {
	Kind RouteKind

	// To is the destination of an unconditional route (a node ID or End).
	To string

	// Decision and Targets describe a conditional route.
	Decision Decision
	Targets  map[string]string
}

// Labels returns the labels of a conditional route in a stable order.
func (r Route) Labels() []string {
	if len(r.Decision.Labels) > 0 {
		return slices.Clone(r.Decision.Labels)
	}
	labels := make([]string, 0, len(r.Targets))
	for l := range r.Targets {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// Destinations returns every node ID (or End) the route can lead to.
func (r Route) Destinations() []string {
	switch r.Kind {
	case RouteUnconditional:
		return []string{r.To}
	case RouteConditional:
		out := make([]string, 0, len(r.Targets))
		for _, l := range r.Labels() {
			if to, ok := r.Targets[l]; ok && !slices.Contains(out, to) {
				out = append(out, to)
			}
		}
		return out
	default:
		return nil
	}
}

// Next resolves the successor against the already merged state.
// label is empty for non-conditional routes.
func (r Route) Next(state View) (next string, label string, err error) {
	switch r.Kind {
	case RouteTerminal:
		return End, "", nil
	case RouteUnconditional:
		return r.To, "", nil
	case RouteConditional:
		label = r.Decision.Func(state)
		to, ok := r.Targets[label]
		if !ok {
			return "", label, fmt.Errorf("%w: decision %q returned %q", ErrUnmappedDecision, r.Decision.Name, label)
		}
		return to, label, nil
	default:
		return "", "", fmt.Errorf("unknown route kind %q", r.Kind)
	}
}
