package echoes

import (
	"context"
	"log/slog"

	"github.com/infinite-echoes/echoes/internal/runtime"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/graph"
)

// Version is the engine release, reported by the CLI and the HTTP API.
var Version = "0.4.0"

// Engine is the high-level entry point of the library.
// It binds one compiled graph to the internal runtime.
type Engine struct {
	graph   *graph.Graph
	runtime *runtime.Engine
	opts    []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, runtime.WithLogger(logger))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithRunIDGenerator replaces the default UUID run identifiers.
func WithRunIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, runtime.WithRunIDGenerator(fn))
	}
}

// New creates an engine for a compiled graph.
func New(g *graph.Graph, opts ...Option) *Engine {
	eng := &Engine{graph: g}
	for _, opt := range opts {
		opt(eng)
	}
	eng.runtime = runtime.NewEngine(eng.opts...)
	return eng
}

// Graph returns the compiled graph the engine runs.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// NewState returns an empty RunState for the engine's schema.
func (e *Engine) NewState() *domain.RunState {
	return domain.NewRunState(e.graph.Schema())
}

// Run executes one run synchronously.
func (e *Engine) Run(ctx context.Context, initial *domain.RunState) (*domain.RunState, error) {
	return e.runtime.Run(ctx, e.graph, initial)
}

// Start launches a run in the background and returns its handle.
func (e *Engine) Start(ctx context.Context, initial *domain.RunState) *Run {
	ctx, cancel := context.WithCancel(ctx)
	r := &Run{
		id:     e.runtime.NewRunID(),
		cancel: cancel,
		done:   make(chan struct{}),
		status: domain.RunPending,
	}

	go func() {
		defer cancel()
		r.setStatus(domain.RunRunning)
		final, err := e.runtime.Execute(ctx, r.id, e.graph, initial)
		r.finish(final, err)
	}()
	return r
}
