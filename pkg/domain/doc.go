/*
Package domain contains the core models of the echoes turn engine.

It defines the data threaded through a run and the shapes the compiler and
executor agree on. This package is kept pure and free of external dependencies
like I/O or persistence.

# Key Entities

  - Schema / RunState: the field-keyed data bag of one run, with a merge policy per field.
  - Node: a named unit of work producing a partial Update.
  - Route: the outgoing edge of a node (terminal, unconditional or decision-driven).
  - RunError / GraphDefinitionError: the typed failures of runs and compilation.
  - Session: the host-side record a turn is seeded from and committed to.
*/
package domain
