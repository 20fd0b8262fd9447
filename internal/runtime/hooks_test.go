package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes/internal/runtime"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

func TestEngine_LifecycleHooks(t *testing.T) {
	var events []string
	var decision *domain.DecisionEvent
	var end *domain.RunEvent
	var routerDelta *domain.StateDiff

	hooks := domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			events = append(events, "start:"+e.EntryNodeID)
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			events = append(events, "enter:"+e.NodeID)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			events = append(events, "leave:"+e.NodeID)
			if e.NodeID == "router" {
				routerDelta = e.Delta
			}
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			events = append(events, "decide:"+e.Label)
			decision = e
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			events = append(events, "end:"+string(e.Status))
			end = e
		},
	}

	engine := runtime.NewEngine(
		runtime.WithLifecycleHooks(hooks),
		runtime.WithRunIDGenerator(func() string { return "run-1" }),
	)
	_, err := engine.Run(context.Background(), turnGraph(t, router("MECHANICS")), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start:router",
		"enter:router", "leave:router", "decide:mechanics",
		"enter:mechanics", "leave:mechanics",
		"enter:narrator", "leave:narrator",
		"end:completed",
	}, events)

	require.NotNil(t, decision)
	assert.Equal(t, "run-1", decision.RunID)
	assert.Equal(t, "route_intent", decision.Decision)
	assert.Equal(t, "mechanics", decision.Target)

	require.NotNil(t, routerDelta)
	assert.Equal(t, map[string]any{"intent": "MECHANICS"}, routerDelta.Changed)
	assert.Equal(t, []any{"classified as MECHANICS"}, routerDelta.Appended["reasoning_log"])

	require.NotNil(t, end)
	assert.Equal(t, []string{"router", "mechanics", "narrator"}, end.Path)
}

func TestEngine_LifecycleHooksOnFailure(t *testing.T) {
	var leaveErr error
	var end *domain.RunEvent
	hooks := domain.LifecycleHooks{
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { leaveErr = e.Err },
		OnRunEnd:    func(_ context.Context, e *domain.RunEvent) { end = e },
	}

	boom := errors.New("boom")
	g := turnGraph(t, func(context.Context, domain.View) (domain.Update, error) { return nil, boom })
	_, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Run(context.Background(), g, nil)
	require.Error(t, err)

	assert.ErrorIs(t, leaveErr, boom)
	require.NotNil(t, end)
	assert.Equal(t, domain.RunFailed, end.Status)
	assert.ErrorIs(t, end.Err, domain.ErrNodeFailed)
}
