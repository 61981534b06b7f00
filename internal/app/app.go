// Package app assembles the checker services from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"fortnite-checker-api/internal/cache"
	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/service"
	"fortnite-checker-api/internal/upstream"
)

// Services is the wired service graph shared by the API server and the CLI.
type Services struct {
	Accounts     *upstream.AccountClient
	Catalog      *upstream.CatalogClient
	CatalogCache *cache.CatalogCache
	Broker       *service.Broker
	Poller       *service.Poller
	Enricher     *service.Enricher
	Aggregator   *service.Aggregator
	Bulk         *service.BulkChecker

	backend cache.Cache
}

// NewServices builds every service. A Redis cache that cannot be reached
// falls back to the in-memory cache with a warning.
func NewServices(ctx context.Context, cfg *config.Config, log *slog.Logger) *Services {
	if log == nil {
		log = logger.L
	}

	backend := newCacheBackend(ctx, cfg.Cache, log)
	catalogCache := cache.NewCatalogCache(backend, cfg.Catalog.CacheTTL, logger.Component(log, "catalog_cache"))

	accounts := upstream.NewAccountClient(cfg.Upstream.AccountBaseURL, cfg.Upstream.ProfileBaseURL, cfg.Upstream.Timeout, log)
	catalog := upstream.NewCatalogClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, cfg.Catalog.RateLimit, log)

	broker := service.NewBroker(accounts, cfg.Upstream, log)
	enricher := service.NewEnricher(catalog, catalogCache, cfg.Catalog, log)
	aggregator := service.NewAggregator(accounts, enricher, cfg.Aggregator, log)

	return &Services{
		Accounts:     accounts,
		Catalog:      catalog,
		CatalogCache: catalogCache,
		Broker:       broker,
		Poller:       service.NewPoller(broker, cfg.Poll, log),
		Enricher:     enricher,
		Aggregator:   aggregator,
		Bulk:         service.NewBulkChecker(broker, aggregator, cfg.Bulk, log),
		backend:      backend,
	}
}

func newCacheBackend(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) cache.Cache {
	if cfg.Type == "redis" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisPrefix,
		}, log)
		if err == nil {
			return rc
		}
		log.Warn("redis cache unavailable, using memory cache", slog.Any("error", err))
	}
	return cache.NewMemoryCache(10 * time.Minute)
}

// Close releases the cache backend.
func (s *Services) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
