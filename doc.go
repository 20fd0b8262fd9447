/*
Package echoes is a turn engine: it executes a small directed graph of named
nodes that share one RunState, to completion, once per logical turn.

A graph is declared once (pkg/graph or pkg/dsl), compiled and validated as a
whole, then shared read-only by every run. Each run owns a private RunState
whose fields are merged by policy (append or overwrite) as nodes return partial
updates. Routing is either unconditional or driven by a decision function
evaluated against the freshly merged state.

# Usage

	schema := domain.MustSchema(
		domain.AppendField("reasoning_log"),
		domain.OverwriteField("final_response"),
	)

	b := dsl.New(schema)
	b.Add("narrator").Do(narrate).Terminal()

	g, err := b.Build("narrator")
	if err != nil {
		log.Fatal(err)
	}

	eng := echoes.New(g)
	final, err := eng.Run(ctx, eng.NewState())

Run blocks; Start returns a *Run handle that can be awaited or cancelled.
Failures are *domain.RunError values carrying the reason, the cause and the
RunState at the point of failure.
*/
package echoes
