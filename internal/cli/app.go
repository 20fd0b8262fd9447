package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/config"
	"github.com/infinite-echoes/echoes/internal/game"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/adapters/file"
	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/adapters/openai"
	"github.com/infinite-echoes/echoes/pkg/adapters/redis"
	"github.com/infinite-echoes/echoes/pkg/graph"
	"github.com/infinite-echoes/echoes/pkg/observability"
	"github.com/infinite-echoes/echoes/pkg/persistence/middleware"
	"github.com/infinite-echoes/echoes/pkg/ports"
	"github.com/infinite-echoes/echoes/pkg/runner"
	"github.com/infinite-echoes/echoes/pkg/session"
)

// App is the wired process: engine, sessions and runner built from a Config.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *prometheus.Registry
	Engine   *echoes.Engine
	Sessions *session.Manager
	Runner   *runner.Runner

	closers []func() error
}

// NewLogger builds the process logger from the configured level.
func NewLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format), nil
}

// Deps builds the turn node collaborators. An OpenAI key enables the LLM narrator.
func Deps(cfg config.Config, logger *slog.Logger) game.Deps {
	deps := game.Deps{
		Dice:   game.RandomDice{},
		Logger: logger,
	}
	if cfg.OpenAI.APIKey != "" {
		deps.Narrator = openai.New(openai.Config{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
		})
	}
	return deps
}

// LoadGraph compiles the configured topology, or the built-in one.
func LoadGraph(cfg config.Config, deps game.Deps) (*graph.Graph, error) {
	var opts []graph.CompileOption
	if cfg.Graph.AllowUnreachable {
		opts = append(opts, graph.AllowUnreachable())
	}
	if deps.Logger != nil {
		opts = append(opts, graph.WithLogger(deps.Logger))
	}
	g, err := game.LoadGraph(cfg.Graph.Path, deps, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return g, nil
}

// NewApp wires every component. Close releases the store connection.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: prometheus.NewRegistry()}

	app.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(app.Metrics)

	deps := Deps(cfg, logger)
	g, err := LoadGraph(cfg, deps)
	if err != nil {
		return nil, err
	}
	app.Engine = echoes.New(g,
		echoes.WithLogger(logger),
		echoes.WithLifecycleHooks(observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))),
	)

	store, locker, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	store, err = wrapStore(store, cfg.Store)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	sessionOpts := []session.Option{session.WithLogger(logger), session.WithLockTTL(cfg.Store.LockTTL)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	app.Runner = runner.New(app.Engine, app.Sessions,
		game.Binding{HistoryLimit: cfg.Turn.HistoryLimit},
		runner.WithLogger(logger),
		runner.WithTurnTimeout(cfg.Turn.Timeout),
		runner.WithMaxInputSize(cfg.Turn.MaxInputSize),
	)
	return app, nil
}

func (a *App) openStore(ctx context.Context) (ports.SessionStore, ports.DistributedLocker, error) {
	cfg := a.Config.Store
	switch cfg.Backend {
	case "redis":
		opts, err := backend.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(opts)
		store := redis.NewFromClient(client, redis.WithPrefix(cfg.Prefix), redis.WithTTL(cfg.TTL))

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.Logger.Info("session store ready", "backend", "redis", "addr", opts.Addr)
		return store, redis.NewLocker(client, cfg.Prefix), nil
	case "file":
		store := file.New(cfg.Dir)
		a.Logger.Info("session store ready", "backend", "file", "dir", store.Dir())
		return store, nil, nil
	default:
		a.Logger.Info("session store ready", "backend", "memory")
		return memory.NewStore(), nil, nil
	}
}

// wrapStore applies redaction then encryption, as configured.
func wrapStore(store ports.SessionStore, cfg config.StoreConfig) (ports.SessionStore, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

// Close releases resources held by the App.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
