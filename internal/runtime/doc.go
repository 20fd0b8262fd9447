// Package runtime executes compiled graphs.
//
// One run walks the graph from its entry node, invoking exactly one node at a
// time, merging each node's Update into the run's private RunState and
// resolving the node's route against the merged state. A run ends Completed
// when it reaches domain.End, or Failed with a *domain.RunError.
package runtime
