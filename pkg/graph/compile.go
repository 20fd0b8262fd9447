package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Compile validates the declarations and freezes them into a Graph.
// On failure it returns a *domain.GraphDefinitionError listing every problem.
// The builder may keep being used afterwards; the Graph does not share memory with it.
func (b *Builder) Compile(entry string, opts ...CompileOption) (*Graph, error) {
	cfg := compileConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	problems := slices.Clone(b.problems)
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if b.schema == nil {
		report("schema is required")
	}

	if entry == "" {
		report("entry node is required")
	} else if _, ok := b.index[entry]; !ok {
		report("entry node %q is not registered", entry)
	}

	for _, n := range b.nodes {
		switch {
		case n.ID == "":
			report("node id cannot be empty")
			continue
		case n.ID == domain.End:
			report("node id %q is reserved for the terminal marker", n.ID)
		}
		if n.Run == nil {
			report("node %q has no function", n.ID)
		}
		b.checkFields(report, fmt.Sprintf("node %q reads", n.ID), n.Reads)
		b.checkFields(report, fmt.Sprintf("node %q writes", n.ID), n.Writes)
	}

	for _, from := range b.sources {
		if _, ok := b.index[from]; !ok {
			report("edge source %q is not a registered node", from)
		}
		b.checkRoute(report, from, b.routes[from])
	}

	g := b.freeze(entry)

	if len(problems) == 0 {
		unreachable := g.unreachable()
		if len(unreachable) > 0 {
			if cfg.allowUnreachable {
				cfg.logger.Warn("graph has unreachable nodes", "entry", entry, "nodes", unreachable)
			} else {
				for _, id := range unreachable {
					report("node %q is unreachable from entry %q", id, entry)
				}
			}
		}

		if !cfg.allowCycles {
			for _, cycle := range g.cycles() {
				report("cycle detected: %s", strings.Join(cycle, " -> "))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &domain.GraphDefinitionError{Problems: problems}
	}
	return g, nil
}

func (b *Builder) checkFields(report func(string, ...any), what string, fields []string) {
	if b.schema == nil {
		return
	}
	for _, f := range fields {
		if !b.schema.Has(f) {
			report("%s undeclared field %q", what, f)
		}
	}
}

func (b *Builder) checkDestination(report func(string, ...any), from, to string) {
	if to == domain.End {
		return
	}
	if to == "" {
		report("edge from %q has an empty destination", from)
		return
	}
	if _, ok := b.index[to]; !ok {
		report("edge from %q points to unknown node %q", from, to)
	}
}

func (b *Builder) checkRoute(report func(string, ...any), from string, r domain.Route) {
	switch r.Kind {
	case domain.RouteTerminal:
	case domain.RouteUnconditional:
		b.checkDestination(report, from, r.To)
	case domain.RouteConditional:
		d := r.Decision
		if d.Func == nil {
			report("conditional edge from %q has no decision function", from)
		}
		if len(r.Targets) == 0 {
			report("conditional edge from %q has an empty mapping", from)
		}
		b.checkFields(report, fmt.Sprintf("decision on %q reads", from), d.Reads)

		declared := make(map[string]bool, len(d.Labels))
		for _, l := range d.Labels {
			if declared[l] {
				report("decision on %q declares label %q twice", from, l)
			}
			declared[l] = true
			if _, ok := r.Targets[l]; !ok {
				report("conditional edge from %q does not map label %q", from, l)
			}
		}
		for _, l := range slices.Sorted(maps.Keys(r.Targets)) {
			if len(d.Labels) > 0 && !declared[l] {
				report("conditional edge from %q maps label %q the decision never returns", from, l)
			}
			b.checkDestination(report, from, r.Targets[l])
		}
	default:
		report("node %q has unknown route kind %q", from, r.Kind)
	}
}

func (b *Builder) freeze(entry string) *Graph {
	g := &Graph{
		schema: b.schema,
		entry:  entry,
		nodes:  make(map[string]domain.Node, len(b.nodes)),
		routes: make(map[string]domain.Route, len(b.routes)),
		order:  make([]string, 0, len(b.nodes)),
	}
	for _, n := range b.nodes {
		n.Reads = slices.Clone(n.Reads)
		n.Writes = slices.Clone(n.Writes)
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}
	for from, r := range b.routes {
		r.Targets = maps.Clone(r.Targets)
		r.Decision.Labels = slices.Clone(r.Decision.Labels)
		r.Decision.Reads = slices.Clone(r.Decision.Reads)
		g.routes[from] = r
	}
	return g
}
