/*
Package observability turns engine lifecycle events into metrics and logs.

Metrics exposes Prometheus collectors fed by LifecycleHooks; LoggingHooks
writes the same events to a slog.Logger. Combine merges several hook sets so
both can be installed on one engine:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))
	engine := echoes.New(g, echoes.WithLifecycleHooks(hooks))
*/
package observability
