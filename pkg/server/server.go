// Package server provides the HTTP server for the context governance proxy.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/ganymede/pkg/audit"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/proxy/handlers"
	"mercator-hq/ganymede/pkg/proxy/middleware"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

// BuildInfo identifies the running binary on the /version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Dependencies carries the wired components the server exposes over HTTP.
type Dependencies struct {
	// Provider handles context requests. Required.
	Provider handlers.ContextProvider

	// AuditStorage backs the audit read endpoints. Required.
	AuditStorage audit.Storage

	// Checker runs readiness checks. Optional; a checker with no
	// registered checks is used when nil.
	Checker *health.Checker

	// Metrics serves the Prometheus endpoint. Optional; when nil the
	// endpoint is not mounted.
	Metrics *metrics.Collector

	// Build is reported by the /version endpoint.
	Build BuildInfo
}

// Server is the HTTP front of the proxy. It mounts the context endpoint,
// the audit read endpoints, and the operational endpoints, and manages
// the listener lifecycle including graceful shutdown.
type Server struct {
	config       *config.Config
	deps         Dependencies
	httpServer   *http.Server
	shutdownChan chan struct{}
	stopOnce     sync.Once
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server from validated configuration and wired components.
func New(cfg *config.Config, deps *Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps == nil || deps.Provider == nil {
		return nil, fmt.Errorf("context provider is required")
	}
	if deps.AuditStorage == nil {
		return nil, fmt.Errorf("audit storage is required")
	}

	d := *deps
	if d.Checker == nil {
		d.Checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	}

	return &Server{
		config:       cfg,
		deps:         d,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	if s.config.Server.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"address", s.config.Server.ListenAddress,
			"tls_enabled", s.config.Server.TLS.Enabled,
		)

		var err error
		if s.config.Server.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(
				s.config.Server.TLS.CertFile,
				s.config.Server.TLS.KeyFile,
			)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a blocked Start to shut the server down. Safe to call from
// any goroutine, any number of times.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdownChan) })
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	contextHandler := handlers.NewContextHandler(s.deps.Provider)
	auditHandler := handlers.NewAuditHandler(s.deps.AuditStorage)

	mux.Handle("/v1/context", contextHandler)
	mux.HandleFunc("/v1/audit/records", auditHandler.Records)
	mux.HandleFunc("/v1/audit/verify", auditHandler.Verify)

	healthCfg := s.config.Telemetry.Health
	if !healthCfg.Disabled {
		mux.HandleFunc(healthCfg.LivenessPath, s.deps.Checker.LivenessHandler())
		mux.HandleFunc(healthCfg.ReadinessPath, s.deps.Checker.ReadinessHandler())
	}
	mux.HandleFunc("/version", health.VersionHandler(
		s.deps.Build.Version,
		s.deps.Build.Commit,
		s.deps.Build.BuildTime,
	))

	metricsCfg := s.config.Telemetry.Metrics
	if !metricsCfg.Disabled && s.deps.Metrics != nil {
		mux.Handle(metricsCfg.Path, s.deps.Metrics.Handler())
	}

	// Innermost to outermost. RequestID sits outside Logging so every
	// request line carries the id; Recovery wraps everything.
	var handler http.Handler = mux
	handler = middleware.TimeoutMiddleware(s.config.Server.RequestTimeout)(handler)
	if s.config.Telemetry.Tracing.Enabled {
		handler = tracing.HTTPMiddleware(handler)
	}
	handler = middleware.CORSMiddleware(&s.config.Server.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// configureTLS builds the TLS listener configuration.
func (s *Server) configureTLS() (*tls.Config, error) {
	tlsCfg := s.config.Server.TLS

	if tlsCfg.CertFile == "" {
		return nil, fmt.Errorf("TLS cert file not specified")
	}
	if tlsCfg.KeyFile == "" {
		return nil, fmt.Errorf("TLS key file not specified")
	}
	if _, err := os.Stat(tlsCfg.CertFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS cert file not found: %s", tlsCfg.CertFile)
	}
	if _, err := os.Stat(tlsCfg.KeyFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("TLS key file not found: %s", tlsCfg.KeyFile)
	}

	minVersion := uint16(tls.VersionTLS13)
	if tlsCfg.MinVersion == "1.2" {
		minVersion = tls.VersionTLS12
	}

	return &tls.Config{MinVersion: minVersion}, nil
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler. Useful for tests that
// serve the full route and middleware stack without a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
