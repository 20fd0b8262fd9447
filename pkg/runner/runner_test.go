package runner_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/game"
	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/runner"
	"github.com/infinite-echoes/echoes/pkg/session"
)

type narratorFunc func(ctx context.Context, req game.NarrationRequest) (string, error)

func (f narratorFunc) Narrate(ctx context.Context, req game.NarrationRequest) (string, error) {
	return f(ctx, req)
}

func newRunner(t *testing.T, deps game.Deps, opts ...runner.Option) (*runner.Runner, *memory.Store) {
	t.Helper()
	g, err := game.NewGraph(deps)
	require.NoError(t, err)
	store := memory.NewStore()
	return runner.New(echoes.New(g), session.NewManager(store), game.Binding{}, opts...), store
}

func TestRunner_Play(t *testing.T) {
	r, store := newRunner(t, game.Deps{Dice: game.NewFixedDice(15, 4)})
	ctx := context.Background()

	res, err := r.Play(ctx, "p1", "  look around\x07 ")
	require.NoError(t, err)
	assert.Equal(t, "p1", res.SessionID)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, game.ResponseQuiet, res.Response)
	require.NotNil(t, res.Changes)
	assert.Equal(t, []string{"classified as NARRATIVE"}, res.State.Strings(game.FieldReasoningLog))
	assert.Len(t, res.Changes.Appended[game.FieldMessages], 1)
	assert.Equal(t, game.ResponseQuiet, res.Changes.Changed[game.FieldFinalResponse])

	s, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Turns)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "look around"}, s.Messages[0])
	assert.Equal(t, domain.RoleAssistant, s.Messages[1].Role)

	res, err = r.Play(ctx, "p1", "attack the goblin")
	require.NoError(t, err)
	assert.Equal(t, game.ResponseHit, res.Response)

	s, err = store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Turns)
	assert.Len(t, s.Messages, 4)
	assert.Equal(t, game.ResponseHit, s.LastResponse)
}

func TestRunner_FailedTurnLeavesSessionUntouched(t *testing.T) {
	fail := false
	deps := game.Deps{Narrator: narratorFunc(func(context.Context, game.NarrationRequest) (string, error) {
		if fail {
			return "", errors.New("llm unavailable")
		}
		return "The wind howls.", nil
	})}
	r, store := newRunner(t, deps)
	ctx := context.Background()

	_, err := r.Play(ctx, "fresh", "hello")
	require.NoError(t, err)
	before, err := store.Load(ctx, "fresh")
	require.NoError(t, err)

	fail = true
	_, err = r.Play(ctx, "fresh", "hello again")
	require.Error(t, err)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.ErrorIs(t, err, domain.ErrNodeFailed)
	assert.Equal(t, game.NodeNarrator, runErr.NodeID)

	after, err := store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = r.Play(ctx, "never-played", "hello")
	require.Error(t, err)
	_, err = store.Load(ctx, "never-played")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRunner_TurnTimeout(t *testing.T) {
	deps := game.Deps{Narrator: narratorFunc(func(ctx context.Context, _ game.NarrationRequest) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})}
	r, _ := newRunner(t, deps, runner.WithTurnTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := r.Play(context.Background(), "slow", "look")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunner_RejectsInput(t *testing.T) {
	r, _ := newRunner(t, game.Deps{}, runner.WithMaxInputSize(8))
	ctx := context.Background()

	_, err := r.Play(ctx, "p1", "   ")
	assert.ErrorIs(t, err, runner.ErrEmptyInput)

	_, err = r.Play(ctx, "p1", strings.Repeat("a", 9))
	assert.ErrorIs(t, err, runner.ErrInputTooLarge)

	_, err = r.Play(ctx, "", "look")
	assert.ErrorIs(t, err, runner.ErrEmptySessionID)
}
