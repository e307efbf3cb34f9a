// Package server exposes network builds over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/graph"
	"ideagraph/semnet/internal/metrics"
	"ideagraph/semnet/internal/network"
)

// Builder builds similarity networks. *network.Assembler satisfies it.
type Builder interface {
	Build(ctx context.Context, req network.Request) (*network.Result, error)
	Config() network.Config
}

// Options configures a Server.
type Options struct {
	Addr            string
	DefaultDepth    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Server is the HTTP front of the network engine.
type Server struct {
	builder  Builder
	metrics  *metrics.Collector
	analyzer *graph.AnalyzerConfig
	opts     Options
	logger   *zap.Logger
	validate *validator.Validate
}

// New wires a server. collector may be nil, in which case /metrics is not mounted.
func New(builder Builder, collector *metrics.Collector, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultDepth < 1 {
		opts.DefaultDepth = 1
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		builder:  builder,
		metrics:  collector,
		analyzer: graph.DefaultConfig(),
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger, s.metrics))
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/network", func(r chi.Router) {
		r.Post("/", s.buildFromBody)
		r.Get("/{type}/{id}", s.buildFromPath)
		r.Get("/{type}/{id}/analysis", s.analyze)
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("address", s.opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
