package runtime

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"slices"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

type nodeResult struct {
	update domain.Update
	err    error
}

// invoke runs the node on its own goroutine and waits for it or for ctx.
// cancelled is non-nil when ctx ended first; a result delivered after that is
// dropped. Panics are converted into errors.
func invoke(ctx context.Context, node domain.Node, view domain.View) (update domain.Update, cancelled error, err error) {
	done := make(chan nodeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- nodeResult{err: fmt.Errorf("node %q panicked: %v\n%s", node.ID, p, debug.Stack())}
			}
		}()
		u, err := node.Run(ctx, view)
		done <- nodeResult{update: u, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err(), nil
	case res := <-done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr, nil
		}
		return res.update, nil, res.err
	}
}

// resolve evaluates the route, converting a panicking decision into an error.
func resolve(route domain.Route, state domain.View) (next, label string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decision %q panicked: %v", route.Decision.Name, p)
		}
	}()
	return route.Next(state)
}

func sortedKeys(u domain.Update) []string {
	return slices.Sorted(maps.Keys(u))
}
