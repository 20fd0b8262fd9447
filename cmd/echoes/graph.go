package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/infinite-echoes/echoes/internal/cli"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the turn graph",
	Long:  `Compiles the configured topology and prints it as a Mermaid diagram (graph TD) or as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, err := cli.LoadGraph(cfg, cli.Deps(cfg, logging.NewNop()))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"entry": g.Entry(),
				"nodes": g.Describe(),
			})
		}

		var overlay *graph.GraphOverlay
		if highlight, _ := cmd.Flags().GetString("highlight"); highlight != "" {
			visited := strings.Split(highlight, ",")
			overlay = &graph.GraphOverlay{
				VisitedNodes: visited,
				CurrentNode:  visited[len(visited)-1],
			}
		}
		fmt.Fprint(out, graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("json", false, "Print node descriptions as JSON")
	graphCmd.Flags().String("highlight", "", "Comma-separated node path to highlight; the last node is marked current")
}
