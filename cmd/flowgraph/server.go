package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/api"
	"github.com/BaSui01/flowgraph/config"
	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/internal/metrics"
	"github.com/BaSui01/flowgraph/internal/server"
	"github.com/BaSui01/flowgraph/provider"
	"github.com/BaSui01/flowgraph/registry"
	"github.com/BaSui01/flowgraph/store"
)

// Server wires the store, providers, engine, and HTTP surface together.
type Server struct {
	cfg     *config.Config
	store   store.Store
	manager *server.Manager
	logger  *zap.Logger
}

// NewServer builds the full service from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg := registry.NewWithCatalog(logger)
	collector := metrics.NewCollector("flowgraph", logger)

	eng := engine.New(engine.Config{
		ProviderTimeout:      cfg.Engine.ProviderTimeout,
		MaxRetries:           cfg.Engine.MaxRetries,
		RetryInitialInterval: cfg.Engine.RetryInitialInterval,
	}, reg, st, providers, collector, logger)

	mux := http.NewServeMux()
	api.NewHandler(st, eng, reg, logger).Register(mux)
	mux.Handle("GET /metrics", collector.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		api.WriteSuccess(w, map[string]string{"status": "ok", "version": Version})
	})

	manager := server.NewManager(collector.Middleware(mux), server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	return &Server{cfg: cfg, store: st, manager: manager, logger: logger}, nil
}

// Start begins serving in the background.
func (s *Server) Start() error {
	return s.manager.Start()
}

// WaitForShutdown blocks until the server stops, then closes the store.
func (s *Server) WaitForShutdown() {
	s.manager.WaitForShutdown()
	if err := s.store.Close(context.Background()); err != nil {
		s.logger.Warn("store close failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Database.Driver == "mongo" {
		return store.OpenMongo(cfg.Database.MongoURI, cfg.Database.Name, logger)
	}
	return store.OpenGorm(cfg.Database.Driver, cfg.Database.DSN(), logger)
}

func buildProviders(cfg *config.Config, logger *zap.Logger) (*provider.Registry, error) {
	var cache *provider.Cache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = provider.NewCache(rdb, provider.CacheConfig{TTL: cfg.Redis.CacheTTL}, logger)
		logger.Info("provider response cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	providers := provider.NewRegistry()
	register := func(name string, p provider.Provider) {
		if cache != nil {
			p = provider.NewCached(p, cache)
		}
		providers.Register(name, p)
	}

	register("openai", provider.NewOpenAICompat(provider.OpenAICompatConfig{
		ProviderName: "openai",
		APIKey:       cfg.Providers.OpenAI.APIKey,
		BaseURL:      cfg.Providers.OpenAI.BaseURL,
		DefaultModel: cfg.Providers.OpenAI.DefaultModel,
		Timeout:      cfg.Engine.ProviderTimeout,
	}, logger))

	register("anthropic", provider.NewAnthropic(provider.AnthropicConfig{
		APIKey:       cfg.Providers.Anthropic.APIKey,
		BaseURL:      cfg.Providers.Anthropic.BaseURL,
		DefaultModel: cfg.Providers.Anthropic.DefaultModel,
		Timeout:      cfg.Engine.ProviderTimeout,
	}, logger))

	// The stub never goes through the cache; it is already cheap and
	// deterministic.
	if cfg.Providers.StubEnabled {
		providers.Register("stub", provider.NewStub())
	}

	if err := providers.SetDefault(cfg.Providers.Default); err != nil {
		return nil, fmt.Errorf("invalid default provider: %w", err)
	}
	return providers, nil
}
