package observability

import (
	"context"
	"log/slog"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Node and decision events go to
// Debug; failed runs are logged at Warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run started", "run_id", e.RunID, "entry", e.EntryNodeID)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{
				"run_id", e.RunID,
				"status", e.Status,
				"path", e.Path,
				"duration", e.Duration,
			}
			if e.Err != nil {
				logger.WarnContext(ctx, "run failed", append(attrs, "reason", domain.ReasonCode(e.Err), "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "run completed", attrs...)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			attrs := []any{"run_id", e.RunID, "node_id", e.NodeID, "duration", e.Duration}
			if e.Delta != nil {
				attrs = append(attrs, "delta", e.Delta)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.DebugContext(ctx, "node_leave", attrs...)
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.DebugContext(ctx, "decision",
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"decision", e.Decision,
				"label", e.Label,
				"target", e.Target,
			)
		},
	}
}
