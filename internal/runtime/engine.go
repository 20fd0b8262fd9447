package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/graph"
)

// Engine is the run loop. It holds no per-run state and is safe for
// concurrent use by any number of runs.
type Engine struct {
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	newRunID func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRunIDGenerator replaces the default UUID run identifiers.
func WithRunIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewRunID returns a fresh run identifier.
func (e *Engine) NewRunID() string {
	return e.newRunID()
}

// Run executes g once under a generated run ID. See Execute.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, initial *domain.RunState) (*domain.RunState, error) {
	return e.Execute(ctx, e.NewRunID(), g, initial)
}

// Execute drives one run of g from its entry node.
//
// initial is cloned; the caller's copy is never mutated. A nil initial starts
// from an empty RunState. On failure the returned state equals the
// *domain.RunError's State.
func (e *Engine) Execute(ctx context.Context, runID string, g *graph.Graph, initial *domain.RunState) (*domain.RunState, error) {
	r := &run{
		engine:  e,
		id:      runID,
		graph:   g,
		started: time.Now(),
		visited: make(map[string]bool),
		logger:  e.logger.With("run_id", runID),
	}

	if initial == nil {
		initial = domain.NewRunState(g.Schema())
	}
	r.state = initial.Clone()

	e.emitRunStart(ctx, &domain.RunEvent{
		EventBase:   r.event(domain.EventRunStart),
		EntryNodeID: g.Entry(),
		Status:      domain.RunRunning,
	})
	r.logger.Debug("run started", "entry", g.Entry())

	if initial.Schema() != g.Schema() {
		return r.fail(ctx, domain.ErrInvalidUpdate, g.Entry(), "", errors.New("initial state was built for another schema"))
	}

	return r.loop(ctx)
}

type run struct {
	engine  *Engine
	id      string
	graph   *graph.Graph
	state   *domain.RunState
	started time.Time
	visited map[string]bool
	path    []string
	logger  *slog.Logger
}

func (r *run) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: r.id}
}

func (r *run) loop(ctx context.Context) (*domain.RunState, error) {
	current := r.graph.Entry()
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, domain.ErrCancelled, current, "", err)
		}

		if r.visited[current] {
			return r.fail(ctx, domain.ErrCycleDetected, current, "",
				fmt.Errorf("node %q revisited after %v", current, r.path))
		}

		node, ok := r.graph.Node(current)
		if !ok {
			return r.fail(ctx, domain.ErrNodeNotFound, current, "", fmt.Errorf("node %q is not in the compiled graph", current))
		}

		r.visited[current] = true
		r.path = append(r.path, current)

		next, label, reason, err := r.step(ctx, node)
		if err != nil {
			return r.fail(ctx, reason, current, label, err)
		}
		if next == domain.End {
			return r.complete(ctx)
		}
		current = next
	}
}

// step runs one node, merges its output and resolves its route.
// On error, reason is the domain sentinel describing the failure.
func (r *run) step(ctx context.Context, node domain.Node) (next, label string, reason, err error) {
	hooks := r.engine.hooks
	stepNo := len(r.path)
	enteredAt := time.Now()

	if hooks.OnNodeEnter != nil {
		hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: r.event(domain.EventNodeEnter),
			NodeID:    node.ID,
			Step:      stepNo,
		})
	}
	r.logger.Debug("node entered", "node_id", node.ID, "step", stepNo)

	leave := func(delta *domain.StateDiff, err error) {
		if hooks.OnNodeLeave != nil {
			hooks.OnNodeLeave(ctx, &domain.NodeEvent{
				EventBase: r.event(domain.EventNodeLeave),
				NodeID:    node.ID,
				Step:      stepNo,
				Duration:  time.Since(enteredAt),
				Delta:     delta,
				Err:       err,
			})
		}
	}

	update, cancelled, err := invoke(ctx, node, r.state.Clone())
	if cancelled != nil {
		leave(nil, cancelled)
		return "", "", domain.ErrCancelled, cancelled
	}
	if err != nil {
		leave(nil, err)
		return "", "", domain.ErrNodeFailed, err
	}

	merged, err := r.merge(node, update)
	if err != nil {
		leave(nil, err)
		return "", "", mergeReason(err), err
	}
	leave(domain.Diff(r.state, merged), nil)
	r.state = merged

	route := r.graph.Route(node.ID)
	next, label, err = resolve(route, r.state.Clone())
	if route.Kind == domain.RouteConditional && label != "" && hooks.OnDecision != nil {
		hooks.OnDecision(ctx, &domain.DecisionEvent{
			EventBase: r.event(domain.EventDecision),
			NodeID:    node.ID,
			Decision:  route.Decision.Name,
			Label:     label,
			Target:    next,
		})
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnmappedDecision) {
			return "", label, domain.ErrUnmappedDecision, err
		}
		return "", label, domain.ErrNodeFailed, err
	}
	if route.Kind == domain.RouteConditional {
		r.logger.Debug("decision taken", "node_id", node.ID, "decision", route.Decision.Name, "label", label, "next", next)
	}
	return next, label, nil, nil
}

// merge validates the update against the node's declared writes and applies
// it to a copy of the current state. The current state is left untouched.
func (r *run) merge(node domain.Node, update domain.Update) (*domain.RunState, error) {
	schema := r.graph.Schema()
	for _, field := range sortedKeys(update) {
		if !schema.Has(field) {
			return nil, &domain.FieldError{NodeID: node.ID, Field: field, Err: domain.ErrUnknownField}
		}
		if !node.CanWrite(field) {
			return nil, &domain.FieldError{NodeID: node.ID, Field: field, Err: domain.ErrUndeclaredWrite}
		}
	}

	merged := r.state.Clone()
	if err := merged.Merge(update); err != nil {
		var fe *domain.FieldError
		if errors.As(err, &fe) {
			fe.NodeID = node.ID
		}
		return nil, err
	}
	return merged, nil
}

// mergeReason maps a merge failure onto its reason sentinel.
func mergeReason(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownField):
		return domain.ErrUnknownField
	case errors.Is(err, domain.ErrUndeclaredWrite):
		return domain.ErrUndeclaredWrite
	default:
		return domain.ErrInvalidUpdate
	}
}

func (r *run) complete(ctx context.Context) (*domain.RunState, error) {
	duration := time.Since(r.started)
	r.logger.Info("run completed", "path", r.path, "duration", duration)
	if h := r.engine.hooks.OnRunEnd; h != nil {
		h(ctx, &domain.RunEvent{
			EventBase: r.event(domain.EventRunEnd),
			Status:    domain.RunCompleted,
			Path:      append([]string(nil), r.path...),
			Duration:  duration,
		})
	}
	return r.state, nil
}

func (r *run) fail(ctx context.Context, reason error, nodeID, label string, cause error) (*domain.RunState, error) {
	runErr := &domain.RunError{
		RunID:  r.id,
		Reason: reason,
		NodeID: nodeID,
		Label:  label,
		Path:   append([]string(nil), r.path...),
		State:  r.state,
		Err:    cause,
	}

	duration := time.Since(r.started)
	if errors.Is(reason, domain.ErrCancelled) {
		r.logger.Info("run cancelled", "node_id", nodeID, "path", r.path)
	} else {
		r.logger.Error("run failed", "node_id", nodeID, "reason", reason, "err", cause, "path", r.path)
	}
	if h := r.engine.hooks.OnRunEnd; h != nil {
		h(ctx, &domain.RunEvent{
			EventBase: r.event(domain.EventRunEnd),
			Status:    domain.RunFailed,
			Path:      runErr.Path,
			Duration:  duration,
			Err:       runErr,
		})
	}
	return r.state, runErr
}

func (e *Engine) emitRunStart(ctx context.Context, ev *domain.RunEvent) {
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, ev)
	}
}
