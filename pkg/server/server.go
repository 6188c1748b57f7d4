// Package server provides the operational HTTP server: metrics, health
// probes, version info, and pacing statistics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/pacer"
	"mercator-hq/callisto/pkg/telemetry/health"
	"mercator-hq/callisto/pkg/telemetry/logging"
)

// Options carries the components the server exposes. Limiter is required;
// everything else has a working zero value.
type Options struct {
	// Limiter answers the /stats endpoints.
	Limiter *pacer.Limiter

	// Checker answers /healthz and /readyz. When nil a fresh checker with
	// no registered component checks is used, which reports ready.
	Checker *health.Checker

	// Metrics is mounted at /metrics when non-nil. Typically
	// Collector.Handler from pkg/telemetry/metrics.
	Metrics http.Handler

	// Version, Commit, and BuildTime feed the /version endpoint.
	Version   string
	Commit    string
	BuildTime string

	// Logger receives lifecycle logs. Discarded when nil.
	Logger *slog.Logger
}

// Server is the operational HTTP server. It never carries upstream
// traffic; it exists so operators and probes can see what the pacer is
// doing.
type Server struct {
	cfg    config.ServerConfig
	opts   Options
	logger *slog.Logger

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates an operational server from its config section.
func New(cfg config.ServerConfig, opts Options) (*Server, error) {
	if opts.Limiter == nil {
		return nil, fmt.Errorf("ops server requires a limiter")
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Server{
		cfg:          cfg,
		opts:         opts,
		logger:       opts.Logger.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start runs the server and blocks until the context is cancelled,
// Shutdown is called, or the listener fails. Cancellation triggers a
// graceful stop bounded by the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("ops server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("ops server listening", "address", s.cfg.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("ops server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, stopping ops server")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server. Safe to call more than once and
// from a different goroutine than Start.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		srv := s.httpServer
		s.mu.Unlock()

		// Unblocks Start when Shutdown is called externally.
		close(s.shutdownChan)

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultServerShutdownTimeout
		}

		s.logger.Info("stopping ops server", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("ops server shutdown failed", "error", err)
				shutdownErr = fmt.Errorf("ops server shutdown: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("ops server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether Start has been called and Shutdown has not
// completed.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the route tree without starting a listener. Tests and
// embedders mount it themselves.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	mux.HandleFunc("/healthz", s.opts.Checker.LivenessHandler())
	mux.HandleFunc("/readyz", s.opts.Checker.ReadinessHandler())
	mux.HandleFunc("/version", health.VersionHandler(s.opts.Version, s.opts.Commit, s.opts.BuildTime))
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/", s.handleStats)

	return mux
}
