package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterNode("narrate", func(context.Context, domain.View) (domain.Update, error) {
		return domain.Update{"final_response": "ok"}, nil
	})
	r.RegisterDecision(domain.Decision{Name: "always", Func: func(domain.View) string { return "x" }})

	fn, err := r.Node("narrate")
	require.NoError(t, err)
	out, err := fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out["final_response"])

	d, err := r.Decision("always")
	require.NoError(t, err)
	assert.Equal(t, "x", d.Func(nil))

	_, err = r.Node("ghost")
	assert.ErrorContains(t, err, "node function not found: ghost")
	_, err = r.Decision("ghost")
	assert.ErrorContains(t, err, "decision not found: ghost")

	nodes, decisions := r.Names()
	assert.Equal(t, []string{"narrate"}, nodes)
	assert.Equal(t, []string{"always"}, decisions)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.RegisterNode("n", func(context.Context, domain.View) (domain.Update, error) { return nil, nil })
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Node("n")
		}()
	}
	wg.Wait()

	_, err := r.Node("n")
	assert.NoError(t, err)
}
