package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/graph"
)

var schema = domain.MustSchema(
	domain.OverwriteField("intent"),
	domain.AppendField("reasoning_log"),
	domain.OverwriteField("final_response"),
)

func noop(context.Context, domain.View) (domain.Update, error) {
	return nil, nil
}

func byIntent() domain.Decision {
	return domain.Decision{
		Name:   "route_intent",
		Labels: []string{"mechanics", "narrator"},
		Reads:  []string{"intent"},
		Func: func(v domain.View) string {
			if s, _ := v.String("intent"); s == "MECHANICS" {
				return "mechanics"
			}
			return "narrator"
		},
	}
}

func turnBuilder() *graph.Builder {
	b := graph.NewBuilder(schema)
	b.Register("router", noop, graph.Writes("intent", "reasoning_log"))
	b.Register("mechanics", noop, graph.Reads("intent"))
	b.Register("narrator", noop, graph.Writes("final_response"))
	b.SetConditionalEdge("router", byIntent(), map[string]string{
		"mechanics": "mechanics",
		"narrator":  "narrator",
	})
	b.SetUnconditionalEdge("mechanics", "narrator")
	b.SetUnconditionalEdge("narrator", domain.End)
	return b
}

func problemsOf(t *testing.T, _ *graph.Graph, err error) []string {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGraphDefinition)
	var gde *domain.GraphDefinitionError
	require.True(t, errors.As(err, &gde))
	return gde.Problems
}

func TestCompile_Valid(t *testing.T) {
	g, err := turnBuilder().Compile("router")
	require.NoError(t, err)

	assert.Equal(t, "router", g.Entry())
	assert.Equal(t, []string{"router", "mechanics", "narrator"}, g.Nodes())
	assert.Same(t, schema, g.Schema())

	r := g.Route("router")
	assert.Equal(t, domain.RouteConditional, r.Kind)
	assert.Equal(t, domain.RouteUnconditional, g.Route("mechanics").Kind)

	n, ok := g.Node("narrator")
	require.True(t, ok)
	assert.Equal(t, []string{"final_response"}, n.Writes)

	_, ok = g.Node("ghost")
	assert.False(t, ok)
}

func TestCompile_UndeclaredRouteIsTerminal(t *testing.T) {
	g, err := graph.NewBuilder(schema).Register("only", noop).Compile("only")
	require.NoError(t, err)
	assert.Equal(t, domain.RouteTerminal, g.Route("only").Kind)
}

func TestCompile_CollectsEveryProblem(t *testing.T) {
	b := graph.NewBuilder(schema)
	b.Register("a", noop, graph.Reads("ghost_field"))
	b.Register("a", noop)
	b.Register("b", nil)
	b.SetUnconditionalEdge("a", "missing")
	b.SetUnconditionalEdge("a", "b")
	b.SetUnconditionalEdge("nobody", domain.End)

	problems := problemsOf(t, b.Compile("start"))
	assert.Contains(t, problems, `node "a" registered more than once`)
	assert.Contains(t, problems, `node "a" has more than one outgoing edge declaration`)
	assert.Contains(t, problems, `entry node "start" is not registered`)
	assert.Contains(t, problems, `node "b" has no function`)
	assert.Contains(t, problems, `node "a" reads undeclared field "ghost_field"`)
	assert.Contains(t, problems, `edge from "a" points to unknown node "missing"`)
	assert.Contains(t, problems, `edge source "nobody" is not a registered node`)
}

func TestCompile_UnknownWriteField(t *testing.T) {
	b := graph.NewBuilder(schema).Register("a", noop, graph.Writes("mood"))
	problems := problemsOf(t, b.Compile("a"))
	assert.Equal(t, []string{`node "a" writes undeclared field "mood"`}, problems)
}

func TestCompile_ConditionalMustBeExhaustive(t *testing.T) {
	b := graph.NewBuilder(schema)
	b.Register("router", noop)
	b.Register("narrator", noop)
	b.SetConditionalEdge("router", byIntent(), map[string]string{
		"narrator": "narrator",
		"shop":     "narrator",
	})

	problems := problemsOf(t, b.Compile("router"))
	assert.Contains(t, problems, `conditional edge from "router" does not map label "mechanics"`)
	assert.Contains(t, problems, `conditional edge from "router" maps label "shop" the decision never returns`)
}

func TestCompile_ConditionalNeedsFunctionAndMapping(t *testing.T) {
	b := graph.NewBuilder(schema)
	b.Register("router", noop)
	b.SetConditionalEdge("router", domain.Decision{Name: "empty"}, nil)

	problems := problemsOf(t, b.Compile("router"))
	assert.Contains(t, problems, `conditional edge from "router" has no decision function`)
	assert.Contains(t, problems, `conditional edge from "router" has an empty mapping`)
}

func TestCompile_Unreachable(t *testing.T) {
	build := func() *graph.Builder {
		b := graph.NewBuilder(schema)
		b.Register("start", noop)
		b.Register("island", noop)
		b.SetUnconditionalEdge("start", domain.End)
		return b
	}

	problems := problemsOf(t, build().Compile("start"))
	assert.Equal(t, []string{`node "island" is unreachable from entry "start"`}, problems)

	g, err := build().Compile("start", graph.AllowUnreachable())
	require.NoError(t, err)
	assert.Len(t, g.Nodes(), 2)
}

func TestCompile_NilLoggerIsIgnored(t *testing.T) {
	b := graph.NewBuilder(schema)
	b.Register("start", noop)
	b.Register("island", noop)
	b.SetUnconditionalEdge("start", domain.End)

	g, err := b.Compile("start", graph.WithLogger(nil), graph.AllowUnreachable())
	require.NoError(t, err)
	assert.Len(t, g.Nodes(), 2)
}

func TestCompile_Cycles(t *testing.T) {
	build := func() *graph.Builder {
		b := graph.NewBuilder(schema)
		b.Register("a", noop)
		b.Register("b", noop)
		b.SetUnconditionalEdge("a", "b")
		b.SetUnconditionalEdge("b", "a")
		return b
	}

	problems := problemsOf(t, build().Compile("a"))
	assert.Equal(t, []string{"cycle detected: a -> b -> a"}, problems)

	_, err := build().Compile("a", graph.AllowCycles())
	assert.NoError(t, err)
}

func TestCompile_SelfLoop(t *testing.T) {
	b := graph.NewBuilder(schema).Register("a", noop).SetUnconditionalEdge("a", "a")
	problems := problemsOf(t, b.Compile("a"))
	assert.Equal(t, []string{"cycle detected: a -> a"}, problems)
}

func TestCompile_IsIdempotent(t *testing.T) {
	b := turnBuilder()
	g1, err := b.Compile("router")
	require.NoError(t, err)
	g2, err := b.Compile("router")
	require.NoError(t, err)

	assert.Equal(t, g1.Describe(), g2.Describe())

	for _, intent := range []string{"MECHANICS", "NARRATIVE", ""} {
		st := domain.NewRunState(schema)
		require.NoError(t, st.Merge(domain.Update{"intent": intent}))
		for _, id := range g1.Nodes() {
			n1, l1, e1 := g1.Route(id).Next(st)
			n2, l2, e2 := g2.Route(id).Next(st)
			assert.Equal(t, n1, n2)
			assert.Equal(t, l1, l2)
			assert.Equal(t, e1, e2)
		}
	}
}

func TestCompile_GraphIsDetachedFromBuilder(t *testing.T) {
	routes := map[string]string{"mechanics": "mechanics", "narrator": "narrator"}
	b := graph.NewBuilder(schema)
	b.Register("router", noop)
	b.Register("mechanics", noop)
	b.Register("narrator", noop)
	b.SetConditionalEdge("router", byIntent(), routes)

	g, err := b.Compile("router")
	require.NoError(t, err)

	routes["narrator"] = "mechanics"
	b.Register("late", noop)

	assert.Equal(t, "narrator", g.Route("router").Targets["narrator"])
	assert.Len(t, g.Nodes(), 3)
}

func TestDescribe(t *testing.T) {
	g, err := turnBuilder().Compile("router")
	require.NoError(t, err)

	info := g.Describe()
	require.Len(t, info, 3)
	want := graph.NodeInfo{
		ID:       "router",
		Writes:   []string{"intent", "reasoning_log"},
		Route:    domain.RouteConditional,
		Decision: "route_intent",
		Targets:  map[string]string{"mechanics": "mechanics", "narrator": "narrator"},
	}
	if diff := cmp.Diff(want, info[0]); diff != "" {
		t.Errorf("router description mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.End, info[2].To)
}
