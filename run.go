package echoes

import (
	"context"
	"sync"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Run is the handle of a run started with Engine.Start.
type Run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status domain.RunStatus
	state  *domain.RunState
	err    error
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Done is closed when the run reaches Completed or Failed.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel requests cancellation. It is safe to call at any time, more than once.
// A run that already finished is unaffected.
func (r *Run) Cancel() {
	r.cancel()
}

// Status reports the current lifecycle position.
func (r *Run) Status() domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Wait blocks until the run finishes and returns its outcome.
// On failure err is a *domain.RunError and the state is the one it carries.
func (r *Run) Wait() (*domain.RunState, error) {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.err
}

func (r *Run) setStatus(s domain.RunStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Run) finish(state *domain.RunState, err error) {
	r.mu.Lock()
	r.state = state
	r.err = err
	if err != nil {
		r.status = domain.RunFailed
	} else {
		r.status = domain.RunCompleted
	}
	r.mu.Unlock()
	close(r.done)
}
