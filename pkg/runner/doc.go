/*
Package runner plays turns against a session.

A turn is one engine run: the player's input is sanitized, the session is
locked and loaded, a RunState is seeded from it, the graph runs under a turn
timeout and, only when the run completes, the final state is committed back
into the session and saved. A failed run leaves the session untouched.

# Key Components

  - Runner: the turn orchestrator used by the HTTP, MCP and CLI surfaces.
  - REPL: an interactive loop that feeds lines from a reader into Play.
  - SanitizeInput: size, encoding and control character checks on input.

# Usage

	r := runner.New(engine, sessions, game.Binding{HistoryLimit: 20},
		runner.WithTurnTimeout(30*time.Second),
	)

	res, err := r.Play(ctx, "player-1", "I attack the goblin")
*/
package runner
