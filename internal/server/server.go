package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"FundPulse/internal/analysis"
	"FundPulse/internal/holdings"
	"FundPulse/internal/metrics"
	"FundPulse/internal/model"
	"FundPulse/internal/recorder"
)

// Runner is the part of the orchestrator the API drives.
type Runner interface {
	Start(ctx context.Context, req analysis.Request) (string, error)
	Phase() model.Phase
	Last() *model.AnalysisResult
	NarrationEnabled() bool
}

// Config holds server configuration
type Config struct {
	Addr     string
	Log      zerolog.Logger
	Runner   Runner
	Holdings *holdings.Store
	Recorder recorder.Recorder
	Gatherer prometheus.Gatherer
	// Ctx bounds runs started over HTTP; request contexts end with the response.
	Ctx context.Context
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	runner   Runner
	holdings *holdings.Store
	recorder recorder.Recorder
	ctx      context.Context
	now      func() time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		runner:   cfg.Runner,
		holdings: cfg.Holdings,
		recorder: cfg.Recorder,
		ctx:      cfg.Ctx,
		now:      time.Now,
	}
	if s.recorder == nil {
		s.recorder = recorder.NewNoopRecorder()
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s.setupMiddleware()
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler(gatherer))
	s.router.Route("/api", s.RegisterRoutes)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
