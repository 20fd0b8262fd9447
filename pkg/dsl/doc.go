/*
Package dsl provides a fluent Go DSL for constructing echoes graphs.

It wraps graph.Builder so a whole turn graph reads top to bottom, one node per
statement. Validation still happens in graph.Builder.Compile, so Build reports
every problem at once.

Example usage:

	b := dsl.New(schema)

	b.Add("router").
		Do(classify).
		Writes("intent", "reasoning_log").
		Branch(routeIntent, map[string]string{
			"mechanics": "mechanics",
			"narrator":  "narrator",
		})

	b.Add("mechanics").
		Do(resolveAttack).
		Go("narrator")

	b.Add("narrator").
		Do(narrate).
		Terminal()

	g, err := b.Build("router")
*/
package dsl
