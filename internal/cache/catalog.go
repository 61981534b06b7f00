package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"fortnite-checker-api/internal/model"
)

// CatalogCache stores resolved catalog records as JSON in a Cache.
// Backend failures are logged and treated as misses.
type CatalogCache struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalogCache wraps c with catalog record encoding.
func NewCatalogCache(c Cache, ttl time.Duration, log *slog.Logger) *CatalogCache {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogCache{cache: c, ttl: ttl, logger: log}
}

// Get returns the cached record for id.
func (c *CatalogCache) Get(ctx context.Context, id string) (model.CatalogRecord, bool) {
	data, err := c.cache.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("catalog cache read failed", slog.String("id", id), slog.Any("error", err))
		}
		return model.CatalogRecord{}, false
	}

	var rec model.CatalogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("catalog cache entry corrupt", slog.String("id", id), slog.Any("error", err))
		_ = c.cache.Delete(ctx, id)
		return model.CatalogRecord{}, false
	}
	return rec, true
}

// Put stores rec under id.
func (c *CatalogCache) Put(ctx context.Context, id string, rec model.CatalogRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, id, data, c.ttl); err != nil {
		c.logger.Warn("catalog cache write failed", slog.String("id", id), slog.Any("error", err))
	}
}

// Stats returns the backend stats.
func (c *CatalogCache) Stats(ctx context.Context) (Stats, error) {
	return c.cache.Stats(ctx)
}

// Clear drops every cached record.
func (c *CatalogCache) Clear(ctx context.Context) error {
	return c.cache.Clear(ctx)
}
