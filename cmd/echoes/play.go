package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/presentation/tui"
	"github.com/infinite-echoes/echoes/pkg/runner"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play turns interactively",
	Long: `Reads one player action per line from stdin and prints the narrated response.
Type /quit to leave. Ctrl+C interrupts the running turn.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, _, err := openApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		out := cmd.OutOrStdout()
		opts := []runner.REPLOption{runner.WithSignals(true)}

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if plain, _ := cmd.Flags().GetBool("plain"); plain {
			interactive = false
		}
		if interactive {
			tui.PrintBanner(out, echoes.Version)
			fmt.Fprintf(out, "session %s\n\n", sessionID)

			width := 80
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
				width = w
			}
			render, err := tui.NewRenderer(width)
			if err != nil {
				return fmt.Errorf("failed to create renderer: %w", err)
			}
			opts = append(opts, runner.WithRenderer(render))
		} else {
			opts = append(opts, runner.WithPrompt(""))
		}

		repl := runner.NewREPL(app.Runner, sessionID, os.Stdin, out, opts...)
		return repl.Loop(ctx)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("session", "", "Session to resume (a new one is created when empty)")
	playCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
}
