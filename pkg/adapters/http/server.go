package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/infinite-echoes/echoes"
	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/internal/presentation/graph"
	"github.com/infinite-echoes/echoes/pkg/domain"
	compiled "github.com/infinite-echoes/echoes/pkg/graph"
	"github.com/infinite-echoes/echoes/pkg/runner"
)

// Server exposes a Runner over REST.
type Server struct {
	Runner   *runner.Runner
	Streams  *StreamManager
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// TurnRequest is the body of POST /sessions/{id}/turns.
type TurnRequest struct {
	Input string `json:"input"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Reason string   `json:"reason,omitempty"`
	NodeID string   `json:"node_id,omitempty"`
	RunID  string   `json:"run_id,omitempty"`
	Path   []string `json:"path,omitempty"`
}

// GraphResponse is the body of GET /graph.
type GraphResponse struct {
	Entry string              `json:"entry"`
	Nodes []compiled.NodeInfo `json:"nodes"`
}

// TurnEvent is the SSE payload sent after each completed turn.
type TurnEvent struct {
	RunID    string            `json:"run_id"`
	Response string            `json:"response"`
	Changes  *domain.StateDiff `json:"changes,omitempty"`
}

// NewHandler creates the HTTP handler for the runner.
func NewHandler(r *runner.Runner, opts ...Option) (http.Handler, error) {
	s := &Server{
		Runner:   r,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	v, err := newValidator(doc)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(s.logRequests)
	mux.Use(enableCORS)

	mux.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(rawSpec)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.Group(func(api chi.Router) {
		api.Use(v.middleware)
		api.Get("/health", s.GetHealth)
		api.Get("/graph", s.GetGraph)
		api.Get("/graph/mermaid", s.GetGraphMermaid)
		api.Get("/sessions", s.ListSessions)
		api.Route("/sessions/{id}", func(sr chi.Router) {
			sr.Get("/", s.GetSession)
			sr.Delete("/", s.DeleteSession)
			sr.Post("/turns", s.PlayTurn)
			sr.Get("/events", s.SubscribeEvents)
		})
	})
	return mux, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(echoes.Version),
	})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.Runner.Engine().Graph()
	writeJSON(w, http.StatusOK, GraphResponse{Entry: g.Entry(), Nodes: g.Describe()})
}

// GetGraphMermaid handles GET /graph/mermaid.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.Runner.Engine().Graph(), nil))
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Runner.Sessions().List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Runner.Sessions().Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Runner.Sessions().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlayTurn handles POST /sessions/{id}/turns.
func (s *Server) PlayTurn(w http.ResponseWriter, r *http.Request) {
	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Reason: "invalid_request"})
		return
	}

	sessionID := chi.URLParam(r, "id")
	res, err := s.Runner.Play(r.Context(), sessionID, body.Input)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if s.Streams.Subscribers(sessionID) > 0 {
		if msg, err := json.Marshal(TurnEvent{RunID: res.RunID, Response: res.Response, Changes: res.Changes}); err == nil {
			s.Streams.Broadcast(sessionID, msg)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")
	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				watch = append(watch, f)
			}
		}
	}

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprint(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !touches(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "event: turn\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// touches reports whether the turn event changed one of the watched fields.
func touches(msg []byte, watch []string) bool {
	var ev TurnEvent
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Changes == nil {
		return false
	}
	for _, field := range watch {
		if _, ok := ev.Changes.Changed[field]; ok {
			return true
		}
		if _, ok := ev.Changes.Appended[field]; ok {
			return true
		}
	}
	return false
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error(), Reason: domain.ReasonCode(err)}

	var runErr *domain.RunError
	if errors.As(err, &runErr) {
		resp.NodeID = runErr.NodeID
		resp.RunID = runErr.RunID
		resp.Path = runErr.Path
	} else {
		resp.Reason = requestReason(err)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, resp)
}

// statusFor maps a Play or store error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, runner.ErrEmptyInput),
		errors.Is(err, runner.ErrInvalidUTF8),
		errors.Is(err, runner.ErrEmptySessionID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNodeFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestReason(err error) string {
	switch {
	case errors.Is(err, runner.ErrInputTooLarge):
		return "input_too_large"
	case errors.Is(err, runner.ErrEmptyInput), errors.Is(err, runner.ErrInvalidUTF8):
		return "invalid_input"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
