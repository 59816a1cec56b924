// Package server provides the pollgate HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/pollgate/pkg/config"
	"mercator-hq/pollgate/pkg/limits"
	"mercator-hq/pollgate/pkg/protection"
	"mercator-hq/pollgate/pkg/proxy/handlers"
	"mercator-hq/pollgate/pkg/proxy/middleware"
	"mercator-hq/pollgate/pkg/retention"
	"mercator-hq/pollgate/pkg/telemetry"
	"mercator-hq/pollgate/pkg/telemetry/health"
	"mercator-hq/pollgate/pkg/telemetry/tracing"
)

// StatusPath is where the protection status endpoint is mounted.
const StatusPath = "/protection"

// Server is the pollgate HTTP server. It owns the protection strategy and the
// background jobs that keep its state bounded.
type Server struct {
	config     *config.Config
	telemetry  *telemetry.Telemetry
	strategy   protection.Strategy
	limiter    *limits.Limiter
	scheduler  *retention.Scheduler
	configPath string
	build      buildInfo
	app        http.Handler

	httpServer   *http.Server
	watcher      *config.Watcher
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

type buildInfo struct {
	version   string
	commit    string
	buildTime string
}

// Option configures a Server.
type Option func(*Server)

// WithConfigPath names the configuration file the server was loaded from.
// It is required for protection.watch to take effect.
func WithConfigPath(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// WithBuildInfo sets what the /version endpoint reports.
func WithBuildInfo(version, commit, buildTime string) Option {
	return func(s *Server) { s.build = buildInfo{version, commit, buildTime} }
}

// WithHandler replaces the demo application behind the protection
// middleware. Embedders use it to protect their own handlers.
func WithHandler(h http.Handler) Option {
	return func(s *Server) { s.app = h }
}

// NewServer creates a server and the protection strategy it runs with. The
// strategy's pending gauge and readiness check are registered with tel.
func NewServer(cfg *config.Config, tel *telemetry.Telemetry, opts ...Option) (*Server, error) {
	s := &Server{
		config:       cfg,
		telemetry:    tel,
		build:        buildInfo{version: tracing.Version, commit: "unknown", buildTime: "unknown"},
		shutdownChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	strategy, err := protection.New(cfg.Protection.Strategy, Timings(cfg.Protection),
		protection.WithLogger(tel.Logger()),
		protection.WithObserver(tel.Metrics()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create protection strategy: %w", err)
	}
	s.strategy = strategy

	if err := tel.Metrics().RegisterPending(strategy.Name(), strategy.Pending); err != nil {
		return nil, fmt.Errorf("failed to register pending gauge: %w", err)
	}
	tel.Health().RegisterCheck("protection", health.PendingCheck(strategy.Pending, cfg.Protection.MaxPending))

	purgers := retention.Purgers{strategy}
	if cfg.Limits.Enabled {
		s.limiter = limits.NewLimiter(limits.FromConfig(cfg.Limits))
		purgers = append(purgers, s.limiter)
	}
	s.scheduler = retention.NewScheduler(purgers, cfg.Protection.PurgeSchedule, tel.Logger())

	return s, nil
}

// Timings converts the protection section of the configuration.
func Timings(cfg config.ProtectionConfig) protection.Timings {
	return protection.Timings{
		Threshold:       cfg.Threshold,
		LongPollTime:    cfg.LongPollTime,
		FailTimeout:     cfg.FailTimeout,
		TransferTimeout: cfg.TransferTimeout,
	}
}

// Strategy returns the protection strategy the server runs with.
func (s *Server) Strategy() protection.Strategy {
	return s.strategy
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

	logger := s.telemetry.Logger()

	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start purge scheduler: %w", err)
	}

	if err := s.startWatcher(ctx); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting pollgate server",
			"address", s.config.Server.ListenAddress,
			"strategy", s.strategy.Name(),
			"protection_enabled", s.config.Protection.Enabled,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.stopBackground()
		return err
	case <-s.shutdownChan:
		logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

func (s *Server) startWatcher(ctx context.Context) error {
	if !s.config.Protection.Watch {
		return nil
	}
	if s.configPath == "" {
		s.telemetry.Logger().Warn("protection.watch is set but no configuration file was loaded, not watching")
		return nil
	}

	w, err := config.NewWatcher(s.configPath, 0)
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	s.watcher = w

	go func() {
		if err := w.Watch(ctx, s.applyReload); err != nil {
			s.telemetry.Logger().Error("config watcher exited", "error", err)
		}
	}()
	return nil
}

// applyReload applies the timings and log level of a reloaded
// configuration. Every other change needs a restart.
func (s *Server) applyReload(cfg *config.Config) {
	logger := s.telemetry.Logger()

	if err := s.telemetry.SetLogLevel(cfg.Telemetry.Logging.Level); err != nil {
		logger.Error("rejected reloaded log level", "error", err)
	}

	if cfg.Protection.Strategy != s.strategy.Name() {
		logger.Warn("protection strategy changed, restart to apply",
			"running", s.strategy.Name(),
			"configured", cfg.Protection.Strategy,
		)
	}

	t := Timings(cfg.Protection)
	if err := s.strategy.SetTimings(t); err != nil {
		logger.Error("rejected reloaded protection timings", "error", err)
		return
	}
	logger.Info("protection timings updated",
		"threshold", t.Threshold,
		"long_poll_time", t.LongPollTime,
		"fail_timeout", t.FailTimeout,
	)
}

// RequestShutdown asks a running Start to return.
func (s *Server) RequestShutdown() {
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

// Shutdown gracefully shuts down the server. Readiness fails first so load
// balancers stop sending original requests, while polls for responses that
// are already pending can still be served until the timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		logger := s.telemetry.Logger()
		logger.Info("initiating graceful shutdown",
			"timeout", s.config.Server.ShutdownTimeout.String(),
			"pending", s.strategy.Pending(),
		)

		s.telemetry.Health().SetDraining()

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.stopBackground()

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		logger.Info("pollgate server stopped")
	})

	return shutdownErr
}

func (s *Server) stopBackground() {
	s.scheduler.Stop()
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			s.telemetry.Logger().Warn("failed to stop config watcher", "error", err)
		}
	}
}

// setupRoutes configures HTTP routes and the middleware chain. Operational
// endpoints bypass protection; everything else is protected.
func (s *Server) setupRoutes() http.Handler {
	tel := s.telemetry
	mux := http.NewServeMux()

	mux.Handle("/", s.protected())
	mux.Handle(StatusPath, handlers.NewStatusHandler(s.strategy))
	mux.Handle("/version", health.VersionHandler(s.build.version, s.build.commit, s.build.buildTime))

	if hc := s.config.Telemetry.Health; hc.Enabled {
		mux.Handle(hc.LivenessPath, tel.Health().LivenessHandler())
		mux.Handle(hc.ReadinessPath, tel.Health().ReadinessHandler())
	}
	if mc := s.config.Telemetry.Metrics; mc.Enabled {
		mux.Handle(mc.Path, tel.Metrics().Handler())
	}

	var handler http.Handler = mux

	handler = middleware.CORSMiddleware(middleware.NewCORSConfig(s.config.Server.CORS, s.config.Protection))(handler)

	handler = middleware.RequestIDMiddleware(handler)

	handler = middleware.LoggingMiddleware(middleware.NewProtectionConfig(s.config.Protection))(handler)

	// Recovery middleware (outermost of the request middleware)
	handler = middleware.RecoveryMiddleware(handler)

	return tracing.HTTPMiddleware(tel.Tracer())(handler)
}

func (s *Server) protected() http.Handler {
	app := s.app
	if app == nil {
		demo := http.NewServeMux()
		if s.config.Demo.Enabled {
			demo.Handle(s.config.Demo.Path, handlers.NewSlowHandler(s.config.Demo))
		}
		app = demo
	}

	protectionConfig := middleware.NewProtectionConfig(s.config.Protection)
	handler := middleware.ProtectionMiddleware(s.strategy, protectionConfig,
		middleware.WithMetrics(s.telemetry.Metrics()),
		middleware.WithTracer(s.telemetry.Tracer()),
		middleware.WithProtectionLogger(s.telemetry.Logger()),
	)(app)

	if s.limiter != nil {
		handler = middleware.LimitsMiddleware(s.limiter, &middleware.LimitsConfig{
			Protection:     protectionConfig,
			ClientIPHeader: s.config.Limits.ClientIPHeader,
			Metrics:        s.telemetry.Metrics(),
			Logger:         s.telemetry.Logger(),
		})(handler)
	}
	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Health reports whether the server is running and ready for traffic.
func (s *Server) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return fmt.Errorf("server is not running")
	}

	status := s.telemetry.Health().CheckReadiness(ctx)
	if !status.Ready() {
		return fmt.Errorf("server is not ready: %s", status.Status)
	}
	return nil
}
