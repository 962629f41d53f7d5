// Package bootstrap builds the application's collaborators from configuration.
// Both cmd/server and cmd/giftctl start from App.
package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/Adams521/everything-gift/internal/cache"
	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/repository"
	"github.com/Adams521/everything-gift/internal/service"
	"github.com/Adams521/everything-gift/internal/source"
)

// Store is what a catalog driver provides
type Store interface {
	service.Catalog
	service.CatalogReader
	service.FeedbackStore
	service.RecommendationRecorder
	io.Closer
}

// App holds the wired services
type App struct {
	Config    *config.Config
	Store     Store
	Engine    service.AIEngine
	Cache     cache.Client
	Recommend *service.RecommendService
	Catalog   *service.CatalogService
	Sources   *source.Registry

	closers []io.Closer
}

// Options adjust wiring for a single process
type Options struct {
	DisableAI    bool // force the rule-based path
	DisableCache bool
}

// New wires the application from cfg
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, store)

	if !opts.DisableAI {
		app.Engine = newEngine(ctx, &cfg.AI)
	}

	var recOpts []service.RecommendOption
	recOpts = append(recOpts, service.WithRecorder(store))
	if cfg.Redis.Enabled() && !opts.DisableCache {
		c, err := cache.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			logging.Warn().Err(err).Msg("Redis unavailable, recommendation cache disabled")
		} else {
			logging.Info().Msg("Connected to Redis, recommendation cache enabled")
			app.Cache = c
			app.closers = append(app.closers, c)
			recOpts = append(recOpts, service.WithCache(c, cfg.Recommend.CacheTTL))
		}
	}

	app.Recommend = service.NewRecommendService(
		service.NewIntentResolver(app.Engine, &cfg.AI),
		service.NewQueryPlanner(store, cfg.Recommend.MaxResults),
		service.NewReasoningSynthesizer(app.Engine, &cfg.AI, &cfg.Recommend),
		recOpts...,
	)

	var embeddings service.EmbeddingStore
	if es, ok := store.(service.EmbeddingStore); ok {
		embeddings = es
	}
	app.Catalog = service.NewCatalogService(store, store, embeddings, cfg.Catalog.EmbeddingDimensions)

	app.Sources = source.NewRegistry(
		source.NewTaobaoSource(cfg.Marketplace),
		source.NewJDSource(cfg.Marketplace),
	)

	return app, nil
}

// Close releases the store and cache connections
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openStore(cfg *config.Config) (Store, error) {
	switch cfg.Catalog.Driver {
	case "memory":
		seed, err := repository.LoadSeed(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		logging.Info().
			Int("products", len(seed.Products)).
			Int("categories", len(seed.Categories)).
			Msg("Using in-memory catalog")
		return repository.NewMemoryRepository(seed), nil
	case "postgres":
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logging.Info().Msg("Connected to PostgreSQL database")
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
}

// newEngine builds the configured provider behind the guard. A disabled or unreachable
// provider still returns an engine whose IsEnabled is false.
func newEngine(ctx context.Context, cfg *config.AIConfig) service.AIEngine {
	var engine service.AIEngine
	switch cfg.Provider {
	case "openai":
		client := service.NewOpenAIClient(cfg)
		if client.IsEnabled() {
			logging.Info().Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("OpenAI-compatible client initialized")
		} else {
			logging.Warn().Msg("OpenAI is disabled, set AI_API_KEY to enable AI analysis")
		}
		engine = client
	default:
		client := service.NewOllamaClient(cfg)
		if client.Connect(ctx) {
			logging.Info().Str("base_url", client.BaseURL()).Str("model", cfg.Model).Msg("Ollama client initialized")
		}
		engine = client
	}
	return service.NewGuardedEngine(engine, cfg)
}

var (
	_ Store = (*repository.MemoryRepository)(nil)
	_ Store = (*repository.PostgresRepository)(nil)

	_ service.EmbeddingStore = (*repository.PostgresRepository)(nil)
)
