package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/AgentOS/agentpkg/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/loader"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/version"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/tracing"
)

// ErrClosed is returned by Seed once Close has started
var ErrClosed = errors.New("server closed")

// Server wraps the host HTTP server and its dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	registry *registry.Registry
	loader   *loader.Loader
	static   *loader.StaticResolver
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	seeds   sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	policy, err := version.ParsePolicy(cfg.Registry.UpgradePolicy)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing package host",
		zap.String("port", cfg.Server.Port),
		zap.String("artifact_dir", cfg.Server.ArtifactDir),
		zap.String("staging_dir", cfg.Loader.StagingDir),
		zap.String("policy", policy.String()),
	)

	// Metrics first, every component reports into them
	metrics := monitoring.NewMetrics()
	tracer := tracing.New(logger)

	reg := registry.New(policy, logger, metrics)
	static := loader.NewStaticResolver()
	ld := loader.New(reg, loader.DefaultResolver(static), loader.OptionsFromConfig(cfg.Loader), logger, metrics).
		WithTracer(tracer)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(middleware.RequestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	apihttp.NewHandlers(ld, metrics, logger, cfg.Server.ArtifactDir).Register(router)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: reg,
		loader:   ld,
		static:   static,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
		closing:  make(chan struct{}),
	}, nil
}

// Resolver exposes the in-process invoker table. Implementations registered
// before a package mounts are bound to its matching symbol exports.
func (s *Server) Resolver() *loader.StaticResolver {
	return s.static
}

// Registry returns the mount registry
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Handler returns the router for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Seed mounts every artifact in the configured artifact directory. Close
// cancels a running seed and waits for it before unmounting.
func (s *Server) Seed(ctx context.Context) (*loader.SeedReport, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.seeds.Add(1)
	s.mu.Unlock()
	defer s.seeds.Done()

	dir := s.config.Server.ArtifactDir
	if dir == "" {
		return &loader.SeedReport{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("Mounting prebuilt artifacts...", zap.String("dir", dir))
	return loader.NewSeeder(s.loader, s.logger).MountDir(ctx, dir)
}

// Run seeds the registry and serves until the listener fails or Close is called
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Seed(ctx); err != nil && !errors.Is(err, ErrClosed) {
		s.logger.Warn("Failed to seed artifacts", zap.Error(err))
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops accepting requests, unmounts every package and flushes logs
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.closing)
	}
	s.mu.Unlock()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to stop http server: %w", err))
	}

	seeded := make(chan struct{})
	go func() {
		s.seeds.Wait()
		close(seeded)
	}()
	select {
	case <-seeded:
	case <-ctx.Done():
		s.logger.Error("Seeding did not stop in time", zap.Error(ctx.Err()))
		errs = append(errs, fmt.Errorf("failed to stop seeding: %w", ctx.Err()))
	}
	if err := s.registry.Close(); err != nil {
		s.logger.Error("Failed to unmount packages", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to unmount packages: %w", err))
	}
	s.logger.Info("Unmounted all packages")

	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
