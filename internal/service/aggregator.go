package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/upstream"
)

const (
	refundAllowance = 3

	stageAccount       = "account"
	stageExternalAuths = "external_auths"
	stageCommonCore    = upstream.ProfileCommonCore
	stageAthena        = upstream.ProfileAthena
	stageEnrichment    = "enrichment"

	msgFetchFailed = "Failed to fetch account data"
)

// ProfileAPI is the part of the account and profile services the aggregator needs.
type ProfileAPI interface {
	GetAccount(ctx context.Context, accessToken, accountID string) (*upstream.Account, error)
	GetExternalAuths(ctx context.Context, accessToken, accountID string) (json.RawMessage, error)
	QueryProfile(ctx context.Context, accessToken, accountID, profileID string) (*upstream.Profile, error)
}

var _ ProfileAPI = (*upstream.AccountClient)(nil)

// Resolver resolves a cosmetic id. It never fails.
type Resolver interface {
	Resolve(ctx context.Context, id string) model.CatalogRecord
}

var _ Resolver = (*Enricher)(nil)

// Aggregator builds AccountDocuments from the profile service.
type Aggregator struct {
	api        ProfileAPI
	resolver   Resolver
	batchSize  int
	batchDelay time.Duration
	sleeper    Sleeper
	logger     *slog.Logger
	now        func() time.Time
}

// NewAggregator creates an aggregator.
func NewAggregator(api ProfileAPI, resolver Resolver, cfg config.AggregatorConfig, log *slog.Logger) *Aggregator {
	size := cfg.BatchSize
	if size < 1 {
		size = 1
	}
	return &Aggregator{
		api:        api,
		resolver:   resolver,
		batchSize:  size,
		batchDelay: cfg.BatchDelay,
		sleeper:    TimerSleeper{},
		logger:     logger.Component(log, "aggregator"),
		now:        time.Now,
	}
}

// WithSleeper replaces the sleeper used between batches.
func (a *Aggregator) WithSleeper(s Sleeper) *Aggregator {
	a.sleeper = s
	return a
}

// profiles holds the decoded common_core and athena profiles.
type profiles struct {
	commonCore *upstream.Profile
	athena     *upstream.Profile
	core       upstream.CommonCoreAttributes
	stats      upstream.AthenaAttributes
}

// FetchAccountDocument builds a full document, resolving every cosmetic.
// Lookup failures degrade to fallback records, so the enrichment stage only
// fails when ctx is cancelled during the pause between batches.
func (a *Aggregator) FetchAccountDocument(ctx context.Context, cred model.Credential) (*model.AccountDocument, error) {
	log := a.logger.With(slog.String("account_id", cred.AccountID))
	start := a.now()

	account, err := a.api.GetAccount(ctx, cred.AccessToken, cred.AccountID)
	if err != nil {
		log.Warn("account fetch failed", slog.Any("error", err))
		return nil, newAggregationError(stageAccount, err)
	}

	externalAuths, err := a.api.GetExternalAuths(ctx, cred.AccessToken, cred.AccountID)
	if err != nil {
		log.Warn("external auths fetch failed", slog.Any("error", err))
		return nil, newAggregationError(stageExternalAuths, err)
	}

	p, err := a.loadProfiles(ctx, cred)
	if err != nil {
		log.Warn("profile fetch failed", slog.Any("error", err))
		return nil, err
	}

	doc := &model.AccountDocument{
		Account:        a.accountInfo(account, p.commonCore.Items),
		Stats:          a.accountStats(p.stats),
		Refunds:        refundInfo(p.core),
		Gifts:          giftInfo(p.core),
		FounderEdition: Founder(p.commonCore.Items),
	}
	doc.Account.ExternalAuths = externalAuths

	grouped := ClassifyItems(p.athena.Items)
	for _, cat := range model.Categories {
		entries := grouped[cat]
		if len(entries) == 0 {
			doc.Cosmetics.Set(cat, []model.CatalogRecord{})
			continue
		}
		records, err := a.EnrichEntries(ctx, entries)
		if err != nil {
			return nil, newAggregationError(stageEnrichment, err)
		}
		doc.Cosmetics.Set(cat, records)
	}
	doc.Counts = doc.Cosmetics.Counts()

	log.Info("account document built",
		slog.Int("skins", doc.Counts.Skins),
		slog.Int64("vbucks", doc.Account.VBucks),
		slog.Duration("took", a.now().Sub(start)),
	)
	return doc, nil
}

// FetchAccountSummary builds the short projection used by bulk checks without
// resolving cosmetics or fetching external auths.
func (a *Aggregator) FetchAccountSummary(ctx context.Context, cred model.Credential) (*model.AccountSummary, error) {
	account, err := a.api.GetAccount(ctx, cred.AccessToken, cred.AccountID)
	if err != nil {
		return nil, newAggregationError(stageAccount, err)
	}

	p, err := a.loadProfiles(ctx, cred)
	if err != nil {
		return nil, err
	}

	grouped := ClassifyItems(p.athena.Items)
	info := a.accountInfo(account, p.commonCore.Items)
	stats := a.accountStats(p.stats)
	return &model.AccountSummary{
		DisplayName:  info.DisplayName,
		MaskedEmail:  info.MaskedEmail,
		Country:      info.Country,
		AccountLevel: stats.AccountLevel,
		VBucks:       info.VBucks,
		Skins:        len(grouped[model.CategorySkins]),
		TotalWins:    stats.TotalWins,
		TFAEnabled:   info.TFAEnabled,
	}, nil
}

func (a *Aggregator) loadProfiles(ctx context.Context, cred model.Credential) (*profiles, error) {
	p := &profiles{}
	var err error

	p.commonCore, err = a.api.QueryProfile(ctx, cred.AccessToken, cred.AccountID, upstream.ProfileCommonCore)
	if err != nil {
		return nil, newAggregationError(stageCommonCore, err)
	}
	if err := p.commonCore.DecodeAttributes(&p.core); err != nil {
		return nil, newAggregationError(stageCommonCore, err)
	}

	p.athena, err = a.api.QueryProfile(ctx, cred.AccessToken, cred.AccountID, upstream.ProfileAthena)
	if err != nil {
		return nil, newAggregationError(stageAthena, err)
	}
	if err := p.athena.DecodeAttributes(&p.stats); err != nil {
		return nil, newAggregationError(stageAthena, err)
	}
	return p, nil
}

// EnrichEntries resolves entries in batches. Lookups inside a batch run
// concurrently and are joined before the next batch starts; successive batches
// are separated by the batch delay. The result is index-aligned with entries.
func (a *Aggregator) EnrichEntries(ctx context.Context, entries []model.InventoryEntry) ([]model.CatalogRecord, error) {
	out := make([]model.CatalogRecord, len(entries))

	for start := 0; start < len(entries); start += a.batchSize {
		end := min(start+a.batchSize, len(entries))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = a.resolver.Resolve(ctx, CatalogID(entries[i].TemplateID))
				return nil
			})
		}
		_ = g.Wait() // Resolve never fails; fallback records stand in

		if end < len(entries) {
			if err := a.sleeper.Sleep(ctx, a.batchDelay); err != nil {
				return nil, fmt.Errorf("enrichment interrupted: %w", err)
			}
		}
	}
	return out, nil
}

func (a *Aggregator) accountInfo(acc *upstream.Account, commonCoreItems upstream.ProfileItems) model.AccountInfo {
	return model.AccountInfo{
		ID:                    acc.ID,
		Email:                 acc.Email,
		MaskedEmail:           MaskEmail(acc.Email),
		DisplayName:           acc.DisplayName,
		Name:                  acc.Name,
		Country:               acc.Country,
		CountryFlag:           CountryFlag(acc.Country),
		CanUpdateDisplayName:  acc.CanUpdateDisplayName,
		LastDisplayNameChange: acc.LastDisplayNameChange.Ptr(),
		LastLogin:             acc.LastLogin.Ptr(),
		Created:               acc.Created.Ptr(),
		TFAEnabled:            acc.TFAEnabled,
		EmailVerified:         acc.EmailVerified,
		MinorVerified:         acc.MinorVerified,
		MinorExpected:         acc.MinorExpected,
		VBucks:                VBucks(commonCoreItems),
	}
}

func (a *Aggregator) accountStats(attrs upstream.AthenaAttributes) model.AccountStats {
	stats := model.AccountStats{
		AccountLevel:  int(attrs.AccountLevel),
		SeasonDetails: make([]model.SeasonDetail, 0, len(attrs.PastSeasons)),
		CurrentSeason: model.CurrentSeason{
			BattlepassLevel:     int(attrs.BookLevel),
			PurchasedBattlepass: bool(attrs.BookPurchased),
			SeasonLevel:         int(attrs.Level),
		},
	}

	for _, s := range attrs.PastSeasons {
		stats.TotalWins += int(s.NumWins)
		stats.TotalMatches += int(s.NumHighBracket) + int(s.NumLowBracket)
		stats.SeasonDetails = append(stats.SeasonDetails, model.SeasonDetail{
			SeasonNumber:        int(s.SeasonNumber),
			Wins:                int(s.NumWins),
			SeasonLevel:         int(s.SeasonLevel),
			BattlepassLevel:     int(s.BookLevel),
			PurchasedBattlepass: bool(s.PurchasedVIP),
		})
	}

	if last := parseTimestamp(attrs.LastMatchEndDatetime); last != nil {
		days := DaysSince(a.now(), *last)
		stats.LastMatchDate = last
		stats.DaysSinceLastMatch = &days
	}
	return stats
}

func refundInfo(core upstream.CommonCoreAttributes) model.RefundInfo {
	used := int(core.MtxPurchaseHistory.RefundsUsed)
	return model.RefundInfo{
		RefundsUsed:      used,
		RefundsRemaining: refundAllowance - used,
	}
}

func giftInfo(core upstream.CommonCoreAttributes) model.GiftInfo {
	return model.GiftInfo{
		GiftsSent:             int(core.GiftsSent),
		GiftsReceived:         int(core.GiftsReceived),
		AllowedToReceiveGifts: bool(core.AllowedToReceiveGifts),
	}
}

func newAggregationError(stage string, err error) *model.AggregationError {
	e := &model.AggregationError{Stage: stage, Message: msgFetchFailed, Err: err}
	if apiErr, ok := upstream.AsAPIError(err); ok {
		e.StatusCode = apiErr.StatusCode
		e.Payload = apiErr.Payload()
		if apiErr.ErrorMessage != "" {
			e.Message = apiErr.ErrorMessage
		}
	} else if err != nil {
		e.Message = err.Error()
	}
	return e
}
