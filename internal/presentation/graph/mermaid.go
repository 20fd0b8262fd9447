package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/infinite-echoes/echoes/pkg/domain"
	compiled "github.com/infinite-echoes/echoes/pkg/graph"
)

const endID = "__end__"

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a compiled graph.
// It applies semantic styling:
// - Entry: ((Circle))
// - Node ending the run: ([Stadium])
// - Default: [Rectangle]
// Conditional edges carry their decision label. Overlay styles are applied if provided.
func GenerateMermaid(g *compiled.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	hasEnd := false
	for _, node := range g.Describe() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == g.Entry():
			opener, closer = "((", "))"
		case node.Route == domain.RouteTerminal:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		switch node.Route {
		case domain.RouteTerminal:
			hasEnd = true
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, endID)
		case domain.RouteUnconditional:
			if node.To == domain.End {
				hasEnd = true
			}
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, target(node.To))
		case domain.RouteConditional:
			labels := make([]string, 0, len(node.Targets))
			for label := range node.Targets {
				labels = append(labels, label)
			}
			slices.Sort(labels)
			for _, label := range labels {
				to := node.Targets[label]
				if to == domain.End {
					hasEnd = true
				}
				safeLabel := strings.ReplaceAll(label, "\"", "'")
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, safeLabel, target(to))
			}
		}
	}
	if hasEnd {
		fmt.Fprintf(&sb, "    %s((\"end\"))\n", endID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func target(id string) string {
	if id == domain.End {
		return endID
	}
	return sanitizeMermaidID(id)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
