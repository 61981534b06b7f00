package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

const (
	defaultRarity = "Common"
	defaultType   = "Unknown"
)

// CatalogAPI looks up one cosmetic definition.
type CatalogAPI interface {
	Lookup(ctx context.Context, id string) (*upstream.CatalogItem, error)
}

var _ CatalogAPI = (*upstream.CatalogClient)(nil)

// RecordCache memoises resolved records across requests.
type RecordCache interface {
	Get(ctx context.Context, id string) (model.CatalogRecord, bool)
	Put(ctx context.Context, id string, rec model.CatalogRecord)
}

// Enricher maps cosmetic ids to display records. It never fails: after the last
// failed attempt it returns a synthesized fallback record.
type Enricher struct {
	catalog     CatalogAPI
	cache       RecordCache
	maxAttempts int
	retryDelay  time.Duration
	sleeper     Sleeper
	logger      *slog.Logger
}

// NewEnricher creates an enricher. cache may be nil.
func NewEnricher(catalog CatalogAPI, cache RecordCache, cfg config.CatalogConfig, log *slog.Logger) *Enricher {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Enricher{
		catalog:     catalog,
		cache:       cache,
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
		sleeper:     TimerSleeper{},
		logger:      logger.Component(log, "enricher"),
	}
}

// WithSleeper replaces the sleeper used between attempts.
func (e *Enricher) WithSleeper(s Sleeper) *Enricher {
	e.sleeper = s
	return e
}

// Resolve resolves id with the configured number of attempts.
func (e *Enricher) Resolve(ctx context.Context, id string) model.CatalogRecord {
	return e.ResolveWithAttempts(ctx, id, e.maxAttempts)
}

// ResolveWithAttempts resolves id with up to maxAttempts lookups.
func (e *Enricher) ResolveWithAttempts(ctx context.Context, id string, maxAttempts int) model.CatalogRecord {
	if e.cache != nil {
		if rec, ok := e.cache.Get(ctx, id); ok {
			return rec
		}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		item, err := e.catalog.Lookup(ctx, id)
		if err == nil {
			rec := recordFromItem(id, item)
			if e.cache != nil {
				e.cache.Put(ctx, id, rec)
			}
			return rec
		}

		e.logger.Debug("catalog lookup failed",
			slog.String("id", id),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt == maxAttempts {
			break
		}
		if err := e.sleeper.Sleep(ctx, e.retryDelay); err != nil {
			break
		}
	}

	return FallbackRecord(id)
}

// FallbackRecord synthesizes a record for an id the catalog could not resolve.
func FallbackRecord(id string) model.CatalogRecord {
	return model.CatalogRecord{
		ID:     id,
		Name:   strings.ToUpper(strings.ReplaceAll(id, "_", " ")),
		Rarity: defaultRarity,
		Type:   defaultType,
		Image:  nil,
	}
}

func recordFromItem(id string, item *upstream.CatalogItem) model.CatalogRecord {
	rec := model.CatalogRecord{
		ID:     id,
		Name:   item.Name,
		Rarity: item.Rarity.DisplayValue,
		Type:   item.Type.DisplayValue,
	}
	if rec.Name == "" {
		rec.Name = id
	}
	if rec.Rarity == "" {
		rec.Rarity = defaultRarity
	}
	if rec.Type == "" {
		rec.Type = defaultType
	}
	switch {
	case item.Images.Icon != "":
		img := item.Images.Icon
		rec.Image = &img
	case item.Images.SmallIcon != "":
		img := item.Images.SmallIcon
		rec.Image = &img
	}
	return rec
}
