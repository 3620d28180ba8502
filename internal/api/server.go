package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/loadlab/internal/ingest"
	"github.com/seantiz/loadlab/internal/metrics"
	"github.com/seantiz/loadlab/internal/simulator"
	"github.com/seantiz/loadlab/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	// Applies to everything but job and stream responses, which lift it.
	writeTimeout = 30 * time.Second
)

// Options carries the server's dependencies.
type Options struct {
	Addr       string
	Store      store.Store
	Metrics    *metrics.Registry
	Simulator  *simulator.Simulator
	Sink       *ingest.Sink
	Broker     *ingest.Broker
	Logger     *slog.Logger
	JobTimeout time.Duration
}

// Server wraps the chi router and application dependencies.
type Server struct {
	router     *chi.Mux
	store      store.Store
	metrics    *metrics.Registry
	sim        *simulator.Simulator
	sink       *ingest.Sink
	broker     *ingest.Broker
	logger     *slog.Logger
	addr       string
	jobTimeout time.Duration
}

// NewServer creates and configures a new HTTP server.
func NewServer(opts Options) *Server {
	srv := &Server{
		router:     chi.NewRouter(),
		store:      opts.Store,
		metrics:    opts.Metrics,
		sim:        opts.Simulator,
		sink:       opts.Sink,
		broker:     opts.Broker,
		logger:     opts.Logger,
		addr:       opts.Addr,
		jobTimeout: opts.JobTimeout,
	}

	// The timing middleware wraps the recover boundary so that recovered
	// faults are recorded with their final 500 status.
	srv.router.Use(middleware.RequestID)
	srv.router.Use(srv.metricsMiddleware)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(srv.recoverMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Get("/api/hello", s.handleHello)
	s.router.Get("/api/time", s.handleTime)

	s.router.Get("/api/heavy-process", s.handleHeavyProcess)
	s.router.Get("/api/heavy-process-unstable", s.handleUnstableProcess)
	s.router.Post("/api/batch-process", s.handleBatchProcess)

	s.router.Post("/api/logs", s.handleIngestLog)
	s.router.Get("/api/logs/stream", s.handleStreamLogs)

	s.router.Get("/api/jobs", s.handleListJobs)
	s.router.Get("/api/jobs/{id}", s.handleGetJob)
	s.router.Get("/api/stats", s.handleGetStats)
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Live log streams never finish on their own; end them so Shutdown can
	// drain connections.
	if s.broker != nil {
		s.broker.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverMiddleware is the catch-all fault boundary. It logs the failing
// request and answers with a generic 500 body.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			s.logger.Error("unhandled fault",
				"method", r.Method,
				"path", r.URL.Path,
				"error", fmt.Sprint(rec),
				"request_id", middleware.GetReqID(r.Context()),
			)
			s.writeError(w, http.StatusInternalServerError, "Internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
