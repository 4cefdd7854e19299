// Package server contains the router, middleware & JSON handlers for the smartwake daemon
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/metrics"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, panic recovery, request IDs, etc.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the path patterns it serves, so a single value
// can be mounted on several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Opts configures a [Server]. Nil fields get defaults.
type Opts struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *log.Logger
}

// Server owns the listener for a [Router].
type Server struct {
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *log.Logger
}

// New builds a [Server] for router.
func New(router Router, opts Opts) *Server {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8787"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          opts.Logger,
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: http shutdown: %v", shared.ErrTimeout, err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// MetricsHandler exposes the Prometheus registry.
type MetricsHandler struct {
	http.Handler
}

// NewMetricsHandler serves m at GET /metrics. A nil m yields an empty registry.
func NewMetricsHandler(m *metrics.Metrics) MetricsHandler {
	if m == nil {
		m = metrics.New()
	}
	return MetricsHandler{Handler: m.Handler()}
}

func (MetricsHandler) Routes() []string { return []string{"GET /metrics"} }
