// Package server exposes agents and tutoring sessions over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/builder"
	"github.com/abhisek/celltutor/internal/metrics"
	"github.com/abhisek/celltutor/internal/registry"
	"github.com/abhisek/celltutor/internal/runtime"
)

// Options wires the server to its collaborators.
type Options struct {
	Builder  *builder.Builder
	Runtime  *runtime.Runtime
	Registry registry.Registry

	// Agents persists built agents. Optional; without it agents live only
	// as long as the process.
	Agents registry.AgentStore

	// Build holds the defaults for POST /agents fields the caller omits.
	Build builder.Config

	// Window is the rolling window used when deriving learner state for
	// history responses.
	Window int

	Logger *slog.Logger
}

// Server holds built agents and live sessions in memory. Agents are
// shared across sessions; each session is driven under its own lock.
type Server struct {
	builder  *builder.Builder
	runtime  *runtime.Runtime
	registry registry.Registry
	agents   registry.AgentStore
	build    builder.Config
	window   int
	logger   *slog.Logger

	builds singleflight.Group

	mu       sync.RWMutex
	cache    map[string]*agent.CellAgent
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu      sync.Mutex
	session *runtime.Session
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Window == 0 {
		opts.Window = runtime.DefaultConfig().Window
	}
	return &Server{
		builder:  opts.Builder,
		runtime:  opts.Runtime,
		registry: opts.Registry,
		agents:   opts.Agents,
		build:    opts.Build,
		window:   opts.Window,
		logger:   opts.Logger,
		cache:    make(map[string]*agent.CellAgent),
		sessions: make(map[string]*sessionEntry),
	}
}

// Handler returns the full router with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", metrics.Handler())
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the agent, session, and learner routes.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/agents", func(r chi.Router) {
		r.Post("/", s.createAgent)
		r.Get("/", s.listAgents)
		r.Get("/{cellID}", s.getAgent)
		r.Get("/{cellID}/visual", s.getVisual)
		r.Post("/{cellID}/sessions", s.startSession)
	})
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/explain", s.explain)
		r.Post("/visual", s.requestVisual)
		r.Post("/quiz", s.startQuiz)
		r.Post("/answers", s.submitAnswer)
		r.Post("/retry", s.retry)
		r.Post("/ask", s.ask)
		r.Delete("/", s.abandon)
	})
	r.Get("/learners/{learnerID}/cells/{cellID}/history", s.history)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs each request through slog and feeds the HTTP
// metrics with the matched route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveHTTPRequest(r.Method, route, status, time.Since(start))

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"duration", time.Since(start))
	})
}

// Shutdown abandons every live session that can be abandoned. Sessions
// holding an unrecorded evaluation are logged so the loss is visible.
func (s *Server) Shutdown(_ context.Context) {
	s.mu.Lock()
	entries := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for id, e := range entries {
		e.mu.Lock()
		if e.session.HasPending() {
			s.logger.Warn("session closed with unrecorded evaluation", "session_id", id)
		}
		e.mu.Unlock()
	}
	s.logger.Info("sessions released", "count", len(entries))
}
