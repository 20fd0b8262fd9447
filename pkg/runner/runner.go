package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/session"
)

// Binding moves data between a session and the RunState of a turn.
type Binding interface {
	Seed(s *domain.Session, input string) (*domain.RunState, error)
	Commit(s *domain.Session, seed, final *domain.RunState)
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	SessionID string            `json:"session_id"`
	RunID     string            `json:"run_id"`
	Response  string            `json:"response"`
	State     *domain.RunState  `json:"state"`
	Changes   *domain.StateDiff `json:"changes,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}

// Runner plays turns: one engine run per player input, persisted per session.
type Runner struct {
	engine   *echoes.Engine
	sessions *session.Manager
	binding  Binding

	timeout  time.Duration
	maxInput int
	logger   *slog.Logger
}

// New creates a Runner.
func New(engine *echoes.Engine, sessions *session.Manager, binding Binding, opts ...Option) *Runner {
	r := &Runner{
		engine:   engine,
		sessions: sessions,
		binding:  binding,
		timeout:  DefaultTurnTimeout,
		maxInput: maxInputSize(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the engine turns run on.
func (r *Runner) Engine() *echoes.Engine {
	return r.engine
}

// Sessions returns the session manager.
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// Play runs one turn for the session, creating the session on its first turn.
// Run failures are returned as *domain.RunError and leave the session as it was.
func (r *Runner) Play(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	clean, err := sanitize(input, r.maxInput)
	if err != nil {
		return nil, err
	}

	var result *TurnResult
	err = r.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		store := r.sessions.Store()

		s, err := store.Load(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			s = domain.NewSession(sessionID)
		} else if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		seed, err := r.binding.Seed(s, clean)
		if err != nil {
			return err
		}

		turnCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			turnCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		start := time.Now()
		run := r.engine.Start(turnCtx, seed)
		final, err := run.Wait()
		if err != nil {
			r.logger.Warn("turn failed", "session_id", sessionID, "run_id", run.ID(), "err", err)
			return err
		}

		r.binding.Commit(s, seed, final)
		if err := store.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		result = &TurnResult{
			SessionID: sessionID,
			RunID:     run.ID(),
			Response:  s.LastResponse,
			State:     final,
			Changes:   domain.Diff(seed, final),
			Duration:  time.Since(start),
		}
		r.logger.Debug("turn completed",
			"session_id", sessionID,
			"run_id", run.ID(),
			"turn", s.Turns,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
