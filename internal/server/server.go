// Package server provides the HTTP server and routing for driftd.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	analyticshandlers "github.com/driftlabs/driftd/internal/modules/analytics/handlers"
	benchmarkhandlers "github.com/driftlabs/driftd/internal/modules/benchmark/handlers"
	portfoliohandlers "github.com/driftlabs/driftd/internal/modules/portfolio/handlers"
	priceshandlers "github.com/driftlabs/driftd/internal/modules/prices/handlers"
	rebalancinghandlers "github.com/driftlabs/driftd/internal/modules/rebalancing/handlers"
	riskhandlers "github.com/driftlabs/driftd/internal/modules/risk/handlers"
	targetinghandlers "github.com/driftlabs/driftd/internal/modules/targeting/handlers"
	tradinghandlers "github.com/driftlabs/driftd/internal/modules/trading/handlers"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Port    int
	DevMode bool

	Portfolio   *portfoliohandlers.Handler
	Rebalancing *rebalancinghandlers.Handler
	Analytics   *analyticshandlers.Handler
	Risk        *riskhandlers.Handler
	Benchmark   *benchmarkhandlers.Handler
	Prices      *priceshandlers.Handler
	Trading     *tradinghandlers.Handler
	Targeting   *targetinghandlers.Handler
	System      *SystemHandlers
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.cfg.Portfolio.RegisterRoutes(r)
		s.cfg.Rebalancing.RegisterRoutes(r)
		s.cfg.Analytics.RegisterRoutes(r)
		s.cfg.Risk.RegisterRoutes(r)
		s.cfg.Benchmark.RegisterRoutes(r)
		s.cfg.Prices.RegisterRoutes(r)
		s.cfg.Trading.RegisterRoutes(r)
		s.cfg.Targeting.RegisterRoutes(r)

		if s.cfg.System != nil {
			s.cfg.System.RegisterRoutes(r)
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		s.log.Error().Err(err).Msg("Failed to write health response")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
