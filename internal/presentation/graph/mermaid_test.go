package graph_test

import (
	"context"
	"strings"
	"testing"

	"github.com/infinite-echoes/echoes/internal/presentation/graph"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/dsl"
	compiled "github.com/infinite-echoes/echoes/pkg/graph"
)

var schema = domain.MustSchema(domain.OverwriteField("choice"))

func noop(context.Context, domain.View) (domain.Update, error) { return nil, nil }

func buildGraph(t *testing.T) *compiled.Graph {
	t.Helper()
	b := dsl.New(schema)
	b.Add("start").Do(noop).Reads("choice").Branch(domain.Decision{
		Name:   "pick",
		Labels: []string{`say "yes"`, "no"},
		Reads:  []string{"choice"},
		Func:   func(domain.View) string { return "no" },
	}, map[string]string{`say "yes"`: "path/to-file.md", "no": domain.End})
	b.Add("path/to-file.md").Do(noop).Go("finish")
	b.Add("finish").Do(noop).Terminal()

	g, err := b.Build("start")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return g
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(buildGraph(t), nil)

	contains := []string{
		"graph TD\n",
		`start(("start"))`,
		`path_to_file_md["path/to-file.md"]`,
		`finish(["finish"])`,
		`start -- "no" --> __end__`,
		`start -- "say 'yes'" --> path_to_file_md`,
		"path_to_file_md --> finish",
		"finish --> __end__",
		`__end__(("end"))`,
	}
	for _, want := range contains {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "classDef") {
		t.Errorf("unexpected overlay styles without overlay:\n%v", got)
	}

	// Labels are sorted, so the output is stable.
	if again := graph.GenerateMermaid(buildGraph(t), nil); again != got {
		t.Errorf("output is not deterministic")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(buildGraph(t), &graph.GraphOverlay{
		VisitedNodes: []string{"start", "start", "path/to-file.md"},
		CurrentNode:  "finish",
	})

	if n := strings.Count(got, "class start visited;"); n != 1 {
		t.Errorf("expected visited nodes to be deduplicated, got %d", n)
	}
	for _, want := range []string{"class path_to_file_md visited;", "class finish current;"} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
}
