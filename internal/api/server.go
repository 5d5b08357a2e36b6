// Package api exposes simulations over HTTP and WebSocket.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"newsvendor-lab/internal/observability"
	"newsvendor-lab/internal/orchestrator"
	"newsvendor-lab/internal/reporting"
	"newsvendor-lab/internal/simulation"
	"newsvendor-lab/internal/storage"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Server wires handlers to their collaborators.
type Server struct {
	orch         *orchestrator.Orchestrator
	runner       *simulation.Runner
	runStore     storage.RunStore
	summaryStore storage.SummaryStore
	reports      *reporting.Generator

	metrics        *observability.Metrics
	metricsHandler http.Handler
	corsOrigins    []string
	logger         zerolog.Logger
}

// Options contains configuration for creating a Server.
type Options struct {
	// Required
	Orchestrator *orchestrator.Orchestrator
	Runner       *simulation.Runner
	RunStore     storage.RunStore
	SummaryStore storage.SummaryStore

	// Optional
	Reports        *reporting.Generator   // enables GET /api/v1/runs/{id}/report
	Metrics        *observability.Metrics // HTTP and WebSocket instrumentation
	MetricsHandler http.Handler           // defaults to observability.Handler()
	CORSOrigins    []string               // defaults to "*"
	Logger         *zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "api").Logger()
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = observability.Handler()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		orch:           opts.Orchestrator,
		runner:         opts.Runner,
		runStore:       opts.RunStore,
		summaryStore:   opts.SummaryStore,
		reports:        opts.Reports,
		metrics:        opts.Metrics,
		metricsHandler: metricsHandler,
		corsOrigins:    origins,
		logger:         logger,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.instrument)
	r.Use(chimiddleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	// Routes
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	r.Get("/ws/grid", s.handleGridStream)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/simulate", s.handleSimulate)
		r.Post("/grid", s.handleGrid)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/report", s.handleRunReport)
	})

	return r
}

type requestIDKey struct{}

// requestID propagates the caller's request ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID stored by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// instrument logs and measures every request under its route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			// Hijacked connections never write a status line through ww.
			code = http.StatusSwitchingProtocols
		}
		elapsed := time.Since(start)

		if s.metrics != nil {
			s.metrics.RecordHTTP(route, code, elapsed.Seconds())
		}
		s.logger.Debug().
			Str("request_id", RequestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", code).
			Dur("elapsed", elapsed).
			Msg("request served")
	})
}
