package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Em-Deesha/profverify/infrastructure/cache"
	"github.com/Em-Deesha/profverify/infrastructure/evidence"
	"github.com/Em-Deesha/profverify/infrastructure/llm"
	"github.com/Em-Deesha/profverify/infrastructure/middleware"
	"github.com/Em-Deesha/profverify/infrastructure/store"
	"github.com/Em-Deesha/profverify/internal/logging"
	"github.com/Em-Deesha/profverify/internal/ports"
	"github.com/Em-Deesha/profverify/internal/verification"
)

// Runtime is a fully wired verification service together with the
// resources it owns.
type Runtime struct {
	Service  *verification.Service
	Logger   logging.Logger
	Metrics  *middleware.PrometheusMetrics
	Registry *prometheus.Registry

	// History is nil when no database is configured.
	History ports.HistoryStore

	closers []func()
}

// Close releases database and cache connections.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// MetricsHandler serves the runtime's registry in the Prometheus text format.
func (r *Runtime) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// NewLogger builds the process logger for cfg.
func NewLogger(cfg LogConfig) (*logging.GologLogger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New("[profverify] ", level), nil
}

// Build wires every adapter named by cfg into a Runtime. Optional backends
// that cannot be reached are logged and left out so verification keeps
// working on the remaining sources.
func Build(ctx context.Context, cfg *Config, logger logging.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewPrometheusMetrics(reg)

	rt := &Runtime{Logger: logger, Metrics: metrics, Registry: reg}

	llmClient, err := BuildLLMClient(cfg.LLM, metrics)
	if err != nil {
		return nil, err
	}
	if llmClient == nil {
		logger.Info("no API key for provider %s, using heuristic scoring", cfg.LLM.Provider)
	} else {
		logger.Info("using %s model %s", cfg.LLM.Provider, llmClient.GetModel())
	}

	deps := verification.Dependencies{
		Metrics: metrics,
		Logger:  logger,
	}
	if llmClient != nil {
		deps.LLM = llmClient
	}

	opts := evidence.Options{
		Timeout:   cfg.Evidence.Timeout,
		UserAgent: cfg.Evidence.UserAgent,
		Logger:    logger,
	}
	deps.Wikipedia = evidence.NewWikipedia(opts)
	deps.SemanticScholar = evidence.NewSemanticScholar(opts, cfg.Evidence.SemanticScholarRPS)
	deps.DuckDuckGo = evidence.NewDuckDuckGo(opts)

	if pg := rt.openStore(ctx, cfg.Store, logger); pg != nil {
		deps.Store = pg
		deps.History = pg
		rt.History = pg
	}

	if c := rt.openCache(ctx, cfg.Cache, logger); c != nil {
		deps.Cache = c
	}

	rt.Service = verification.NewService(deps,
		verification.WithAppID(cfg.AppID),
		verification.WithCacheTTL(cfg.Cache.TTL),
		verification.WithParallelFetch(cfg.Evidence.Parallel),
	)
	return rt, nil
}

// BuildLLMClient returns nil without error when no API key is configured.
func BuildLLMClient(cfg LLMConfig, collector ports.MetricsCollector) (*llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	client, err := llm.NewClient(cfg.Provider, llm.ClientConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Middleware: llm.StandardMiddleware(cfg.Provider, llm.ResilienceConfig{
			Timeout:            cfg.Timeout,
			RequestsPerSecond:  cfg.RequestsPerSecond,
			Burst:              cfg.Burst,
			CircuitMaxFailures: cfg.CircuitMaxFailures,
			CircuitCooldown:    cfg.CircuitCooldown,
		}, collector),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}
	return client, nil
}

func (r *Runtime) openStore(ctx context.Context, cfg StoreConfig, logger logging.Logger) *store.Postgres {
	if cfg.DatabaseURL == "" {
		logger.Info("no database configured, profile lookup and history disabled")
		return nil
	}

	pg, err := store.NewPostgres(ctx, store.PostgresOptions{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Warn("database unavailable: %v", err)
		return nil
	}
	if err := pg.InitSchema(ctx); err != nil {
		logger.Warn("database unavailable: %v", err)
		pg.Close()
		return nil
	}
	r.closers = append(r.closers, pg.Close)
	return pg
}

func (r *Runtime) openCache(ctx context.Context, cfg CacheConfig, logger logging.Logger) ports.ResultCache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}

	rc := cache.NewRedis(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis at %s not reachable yet: %v", cfg.RedisAddr, err)
	}
	r.closers = append(r.closers, func() {
		if err := rc.Close(); err != nil {
			logger.Warn("failed to close redis: %v", err)
		}
	})
	return rc
}
