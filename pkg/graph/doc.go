// Package graph declares and compiles the node/edge graph executed by the engine.
//
// A Builder collects node registrations and edge declarations. Compile validates
// everything at once and returns an immutable *Graph, or a
// *domain.GraphDefinitionError listing every problem found. A compiled Graph is
// never mutated and may be shared by any number of concurrent runs.
package graph
