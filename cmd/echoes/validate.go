package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/infinite-echoes/echoes/internal/cli"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [topology-file]",
	Short: "Check a topology for consistency",
	Long: `Compiles a topology file against the turn nodes and reports every problem:
unknown nodes or decisions, undeclared fields, dangling routes, unreachable nodes and cycles.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Graph.Path = args[0]
		}

		out := cmd.OutOrStdout()
		if _, err := cli.LoadGraph(cfg, cli.Deps(cfg, logging.NewNop())); err != nil {
			var defErr *domain.GraphDefinitionError
			if errors.As(err, &defErr) {
				fmt.Fprintln(out, "Validation failed:")
				for _, p := range defErr.Problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				return errors.New("graph is invalid")
			}
			return err
		}
		fmt.Fprintln(out, "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
