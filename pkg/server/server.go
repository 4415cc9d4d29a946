package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/proxy/middleware"
	securitytls "mercator-hq/enricher/pkg/security/tls"
	"mercator-hq/enricher/pkg/telemetry/health"
	"mercator-hq/enricher/pkg/telemetry/metrics"
)

// Options carries the components the server routes to.
type Options struct {
	// Proxy serves every path not claimed by the probes or metrics. Required.
	Proxy http.Handler

	// Collector serves the metrics endpoint and records HTTP requests. It may
	// be nil.
	Collector *metrics.Collector

	// Checker backs /health and /ready. A checker without checks is used
	// when nil.
	Checker *health.Checker

	Version health.VersionInfo
	Logger  *slog.Logger
}

// Server is the enricher's HTTP server.
type Server struct {
	config        *config.ProxyConfig
	metricsConfig *config.MetricsConfig
	healthConfig  *config.HealthConfig
	opts          Options
	logger        *slog.Logger

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new server from the proxy and metrics settings of cfg.
func NewServer(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}
	return &Server{
		config:        &cfg.Proxy,
		metricsConfig: &cfg.Telemetry.Metrics,
		healthConfig:  &cfg.Telemetry.Health,
		opts:          opts,
		logger:        logger.With("component", "server"),
		shutdownChan:  make(chan struct{}),
	}
}

// Start listens on the configured address and serves until ctx is cancelled,
// Stop is called, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	var reloader *securitytls.Reloader
	if s.config.TLS.Enabled {
		tlsConfig, r, err := securitytls.NewServerConfig(s.config.TLS, s.logger)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
		reloader = r
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.isRunning = true
	s.mu.Unlock()

	if reloader != nil {
		reloadCtx, cancelReload := context.WithCancel(ctx)
		defer cancelReload()
		go reloader.Run(reloadCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting enricher",
			"address", ln.Addr().String(),
			"tls_enabled", s.config.TLS.Enabled,
		)

		var err error
		if s.config.TLS.Enabled {
			// The certificate comes from TLSConfig.GetCertificate.
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Stop asks a running Start to shut down.
func (s *Server) Stop() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
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

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("enricher stopped")
	})

	return shutdownErr
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	health.Register(mux, s.healthConfig.PathPrefix, s.opts.Checker, s.opts.Version)

	var recorder middleware.RequestRecorder
	if s.opts.Collector != nil {
		recorder = s.opts.Collector
		if s.metricsConfig.Enabled {
			mux.Handle(s.metricsConfig.Path, s.opts.Collector.Handler())
		}
	}

	mux.Handle("/", s.opts.Proxy)

	var handler http.Handler = mux
	handler = middleware.TimeoutMiddleware(s.config.WriteTimeout)(handler)
	handler = middleware.LoggingMiddleware(s.logger, recorder)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
