// Package main provides the promptgate gateway server implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/basui01/promptgate/api/handlers"
	"github.com/basui01/promptgate/config"
	"github.com/basui01/promptgate/contextstore"
	"github.com/basui01/promptgate/internal/accounting"
	"github.com/basui01/promptgate/internal/cache"
	"github.com/basui01/promptgate/internal/metrics"
	"github.com/basui01/promptgate/internal/ratelimit"
	"github.com/basui01/promptgate/internal/server"
	"github.com/basui01/promptgate/internal/telemetry"
	"github.com/basui01/promptgate/llm"
	"github.com/basui01/promptgate/llm/embedding"
	"github.com/basui01/promptgate/llm/factory"
	"github.com/basui01/promptgate/relevance"
	"github.com/basui01/promptgate/router"
	"github.com/basui01/promptgate/scoring"
	"github.com/basui01/promptgate/strategy"
	"github.com/basui01/promptgate/websearch"
)

// Server is the gateway's process-level assembly: every subsystem wired
// together and exposed over two listeners, one for the enhancement API and
// one for Prometheus scraping.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	otelProviders *telemetry.Providers

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler  *handlers.HealthHandler
	enhanceHandler *handlers.EnhanceHandler

	metricsCollector *metrics.Collector
	cacheManager     *cache.Manager

	wg sync.WaitGroup
}

// NewServer creates a new, unstarted gateway server.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{cfg: cfg, logger: logger, otelProviders: otelProviders}
}

// Start wires every subsystem and opens both listeners. It returns once
// both servers have bound their ports; actual request handling happens in
// background goroutines.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("promptgate", s.logger)

	core, err := s.buildCore()
	if err != nil {
		return fmt.Errorf("failed to build enhancement pipeline: %w", err)
	}

	if err := s.initHandlers(core); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

// buildCore constructs router.Core from the configured subsystems. Any
// construction error (fallback engine, relevance client, strategy store,
// context store) aborts startup; accounting and web search are left nil
// when their BaseURL is not configured.
func (s *Server) buildCore() (*router.Core, error) {
	clients := factory.BuildClients(s.cfg.Vendors, s.logger)

	fallback, err := llm.NewFallbackEngine(s.cfg.Providers, clients, s.logger)
	if err != nil {
		return nil, fmt.Errorf("building fallback engine: %w", err)
	}
	fallback.SetMetrics(s.metricsCollector)

	relevanceClient, ok := clients[s.cfg.Relevance.Provider]
	if !ok {
		return nil, fmt.Errorf("relevance provider %q has no configured vendor client", s.cfg.Relevance.Provider)
	}
	planner := relevance.New(relevanceClient, s.cfg.Relevance.Timeout, s.logger)

	var accountingCli *accounting.Client
	if s.cfg.Accounting.BaseURL != "" {
		accountingCli = accounting.New(s.cfg.Accounting.BaseURL, s.cfg.Accounting.Timeout, s.logger)
	}

	var webSearchCli *websearch.Client
	if s.cfg.WebSearch.BaseURL != "" {
		webSearchCli = websearch.New(s.cfg.WebSearch.BaseURL, s.cfg.WebSearch.APIKey, s.cfg.WebSearch.Timeout, s.logger)
	}

	embedder := embedding.New(embedding.Config{
		APIKey:  s.cfg.Embedding.APIKey,
		BaseURL: s.cfg.Embedding.BaseURL,
		Model:   s.cfg.Embedding.Model,
		Timeout: s.cfg.Embedding.Timeout,
	})

	strategies, err := loadStrategyStore(s.cfg.Strategy, embedder, s.logger)
	if err != nil {
		return nil, fmt.Errorf("loading strategy store: %w", err)
	}
	strategies.SetMetrics(s.metricsCollector)

	var visionLLM llm.ProviderClient
	if relevanceClient != nil {
		visionLLM = relevanceClient
	}
	contexts, err := contextstore.New(embedder, visionLLM, s.cfg.ContextStore.SnapshotDir, s.logger)
	if err != nil {
		return nil, fmt.Errorf("building context store: %w", err)
	}

	scorer := scoring.NewEngine()

	return router.New(planner, accountingCli, webSearchCli, strategies, contexts, scorer, fallback, s.logger), nil
}

func (s *Server) initHandlers(core *router.Core) error {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.enhanceHandler = handlers.NewEnhanceHandler(core, s.logger)
	s.logger.Info("handlers initialized")
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("/enhance", s.enhanceHandler.HandleSync)
	mux.HandleFunc("/enhance/stream", s.enhanceHandler.HandleStream)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	limiter := ratelimit.New(s.cfg.RateLimit.Limit, s.cfg.RateLimit.Window, s.rateLimitRedisClient(), s.logger)

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
		SecurityHeaders(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(limiter, s.logger),
		BearerAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
	}
	if s.otelProviders != nil {
		middlewares = append(middlewares, OTelTracing())
	}
	handler := Chain(mux, middlewares...)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// rateLimitRedisClient builds the cache manager backing the distributed
// rate limiter when a Redis address is configured, reusing its connection
// pool rather than opening a second one. Returns nil when RedisAddr is
// unset, in which case the limiter degrades to its in-process tier.
func (s *Server) rateLimitRedisClient() *redis.Client {
	if s.cfg.RateLimit.RedisAddr == "" {
		return nil
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.Addr = s.cfg.RateLimit.RedisAddr

	mgr, err := cache.NewManager(cacheCfg, s.logger)
	if err != nil {
		s.logger.Warn("rate limit redis unavailable, falling back to in-process limiter",
			zap.String("addr", s.cfg.RateLimit.RedisAddr), zap.Error(err))
		return nil
	}

	s.cacheManager = mgr
	return mgr.Client()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}
	s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// WaitForShutdown blocks until the HTTP server's signal-driven shutdown
// completes, then tears down the remaining subsystems.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown gracefully stops every listener and flushes telemetry.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown...")

	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("telemetry shutdown error", zap.Error(err))
		}
	}
	if s.cacheManager != nil {
		if err := s.cacheManager.Close(); err != nil {
			s.logger.Error("cache manager shutdown error", zap.Error(err))
		}
	}

	s.wg.Wait()
	s.logger.Info("graceful shutdown completed")
}
