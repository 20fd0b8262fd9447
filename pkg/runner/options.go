package runner

import (
	"log/slog"
	"time"
)

// DefaultTurnTimeout bounds a single turn when no timeout is configured.
const DefaultTurnTimeout = 60 * time.Second

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithTurnTimeout bounds each turn. Zero or negative disables the bound.
func WithTurnTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithMaxInputSize overrides the input size limit (in bytes).
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxInput = n
		}
	}
}
