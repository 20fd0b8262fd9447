package game

import (
	_ "embed"

	"github.com/infinite-echoes/echoes/pkg/adapters/topology"
	"github.com/infinite-echoes/echoes/pkg/dsl"
	"github.com/infinite-echoes/echoes/pkg/graph"
	"github.com/infinite-echoes/echoes/pkg/registry"
)

// Node IDs of the turn graph.
const (
	NodeRouter    = "router"
	NodeMechanics = "mechanics"
	NodeNarrator  = "narrator"
)

// DefaultTopology is the turn graph as a topology file. It wires the same
// functions NewGraph does.
//
//go:embed turn.yaml
var DefaultTopology []byte

// NewGraph compiles router -> (mechanics ->) narrator -> end.
func NewGraph(deps Deps) (*graph.Graph, error) {
	b := dsl.New(Schema)

	b.Add(NodeRouter).
		Do(Router(deps)).
		Reads(FieldMessages).
		Writes(FieldIntent, FieldReasoningLog).
		Branch(RouteIntent, map[string]string{
			"mechanics": NodeMechanics,
			"narrator":  NodeNarrator,
		})

	b.Add(NodeMechanics).
		Do(Mechanics(deps)).
		Reads(FieldMessages).
		Writes(FieldMechanicsResults, FieldReasoningLog).
		Go(NodeNarrator)

	b.Add(NodeNarrator).
		Do(NarratorNode(deps)).
		Reads(FieldMessages, FieldMechanicsResults, FieldZoneID).
		Writes(FieldMessages, FieldFinalResponse).
		Terminal()

	return b.Build(NodeRouter)
}

// Register exposes the turn nodes and decision to topology files.
func Register(reg *registry.Registry, deps Deps) {
	reg.RegisterNode(NodeRouter, Router(deps))
	reg.RegisterNode(NodeMechanics, Mechanics(deps))
	reg.RegisterNode(NodeNarrator, NarratorNode(deps))
	reg.RegisterDecision(RouteIntent)
}

// LoadGraph compiles a topology file against the turn nodes. An empty path
// loads DefaultTopology.
func LoadGraph(path string, deps Deps, opts ...graph.CompileOption) (*graph.Graph, error) {
	reg := registry.NewRegistry()
	Register(reg, deps)
	if path == "" {
		return topology.Load(DefaultTopology, topology.FormatYAML, reg, Schema, opts...)
	}
	return topology.LoadFile(path, reg, Schema, opts...)
}
