package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

const namespace = "echoes"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	decisions    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by status and failure reason.",
			},
			[]string{"status", "reason"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of finished runs.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits.",
			},
			[]string{"node"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of node executions.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Labels chosen by conditional edges.",
			},
			[]string{"node", "label"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector, for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.runs, m.runDuration, m.nodeVisits, m.nodeDuration, m.decisions}
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			reason := domain.ReasonCode(e.Err)
			if reason == "" {
				reason = "none"
			}
			m.runs.WithLabelValues(string(e.Status), reason).Inc()
			m.runDuration.Observe(e.Duration.Seconds())
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
		},
		OnDecision: func(_ context.Context, e *domain.DecisionEvent) {
			m.decisions.WithLabelValues(e.NodeID, e.Label).Inc()
		},
	}
}
