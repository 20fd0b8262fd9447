package runner_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes/internal/game"
	"github.com/infinite-echoes/echoes/pkg/runner"
)

func TestREPL_Loop(t *testing.T) {
	r, store := newRunner(t, game.Deps{Dice: game.NewFixedDice(15, 4)})
	var out bytes.Buffer
	in := strings.NewReader("look around\n\nattack\n/quit\nlook again\n")

	repl := runner.NewREPL(r, "hero", in, &out, runner.WithPrompt(""))
	require.NoError(t, repl.Loop(context.Background()))

	assert.Equal(t, game.ResponseQuiet+"\n"+game.ResponseHit+"\n", out.String())

	s, err := store.Load(context.Background(), "hero")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Turns)
}

func TestREPL_RendererAndErrors(t *testing.T) {
	deps := game.Deps{Narrator: narratorFunc(func(_ context.Context, req game.NarrationRequest) (string, error) {
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "fail") {
			return "", errors.New("llm unavailable")
		}
		return "**dark**", nil
	})}
	r, _ := newRunner(t, deps)
	var out bytes.Buffer
	in := strings.NewReader("fail please\nlook")

	renderer := func(s string) (string, error) {
		return strings.ReplaceAll(s, "*", ""), nil
	}
	repl := runner.NewREPL(r, "hero", in, &out, runner.WithRenderer(renderer))
	require.NoError(t, repl.Loop(context.Background()))

	got := out.String()
	assert.Contains(t, got, `error: the turn failed at "narrator"`)
	assert.Contains(t, got, "llm unavailable")
	assert.Contains(t, got, "> dark\n")
}

func TestREPL_ContextCancelled(t *testing.T) {
	r, _ := newRunner(t, game.Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pr, pw := io.Pipe()
	defer pw.Close()

	repl := runner.NewREPL(r, "hero", pr, &bytes.Buffer{})
	assert.ErrorIs(t, repl.Loop(ctx), context.Canceled)
}
