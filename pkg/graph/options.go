package graph

import (
	"log/slog"
)

// CompileOption tunes validation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	allowUnreachable bool
	allowCycles      bool
	logger           *slog.Logger
}

// AllowUnreachable downgrades unreachable nodes from an error to a logged warning.
func AllowUnreachable() CompileOption {
	return func(c *compileConfig) {
		c.allowUnreachable = true
	}
}

// AllowCycles accepts static cycles. Runs that actually revisit a node still
// fail with domain.ErrCycleDetected.
func AllowCycles() CompileOption {
	return func(c *compileConfig) {
		c.allowCycles = true
	}
}

// WithLogger sets the logger used for compile warnings.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
