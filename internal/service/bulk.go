package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/pkg/uid"
)

const (
	msgValidAccount    = "Valid Account"
	msgValidNoData     = "Valid (Data fetch failed)"
	msgCheckCancelled  = "Check cancelled"
	msgUnexpectedError = "Authentication Failed"
)

// DeviceAuthenticator exchanges a device secret for a session credential.
type DeviceAuthenticator interface {
	AuthenticateWithDeviceSecret(ctx context.Context, ds model.DeviceSecret) (model.Credential, error)
}

var _ DeviceAuthenticator = (*Broker)(nil)

// AccountFetcher builds account data for a credential.
type AccountFetcher interface {
	FetchAccountDocument(ctx context.Context, cred model.Credential) (*model.AccountDocument, error)
	FetchAccountSummary(ctx context.Context, cred model.Credential) (*model.AccountSummary, error)
}

var _ AccountFetcher = (*Aggregator)(nil)

// BulkOptions tunes a bulk run.
type BulkOptions struct {
	// Detailed attaches the full AccountDocument instead of the short summary.
	Detailed bool
}

// BulkChecker validates many device secrets one after another.
type BulkChecker struct {
	auth      DeviceAuthenticator
	fetcher   AccountFetcher
	itemDelay time.Duration
	sleeper   Sleeper
	logger    *slog.Logger
	now       func() time.Time
}

// NewBulkChecker creates a bulk checker.
func NewBulkChecker(auth DeviceAuthenticator, fetcher AccountFetcher, cfg config.BulkConfig, log *slog.Logger) *BulkChecker {
	return &BulkChecker{
		auth:      auth,
		fetcher:   fetcher,
		itemDelay: cfg.ItemDelay,
		sleeper:   TimerSleeper{},
		logger:    logger.Component(log, "bulk"),
		now:       time.Now,
	}
}

// WithSleeper replaces the sleeper used between items.
func (c *BulkChecker) WithSleeper(s Sleeper) *BulkChecker {
	c.sleeper = s
	return c
}

// CheckAll checks every item in order and never fails. The report has exactly
// one result per item, in input order. After cancellation the remaining items
// are reported as failed.
func (c *BulkChecker) CheckAll(ctx context.Context, items []model.DeviceSecret, opts BulkOptions) model.BulkReport {
	report := model.BulkReport{
		ID:        uid.NewOrdered(),
		CreatedAt: c.now().UTC(),
		Results:   make([]model.BulkCheckResult, 0, len(items)),
	}
	log := c.logger.With(slog.String("report_id", report.ID))
	log.Info("bulk check started", slog.Int("total", len(items)))

	for i, item := range items {
		if ctx.Err() != nil {
			report.Results = append(report.Results, cancelledResults(items[i:])...)
			break
		}

		result := c.checkOne(ctx, item, opts)
		report.Results = append(report.Results, result)
		log.Info("bulk item checked",
			slog.Int("index", i+1),
			slog.String("label", result.Label),
			slog.String("status", string(result.Status)),
			slog.String("message", result.Message),
		)

		if i < len(items)-1 {
			if err := c.sleeper.Sleep(ctx, c.itemDelay); err != nil {
				report.Results = append(report.Results, cancelledResults(items[i+1:])...)
				break
			}
		}
	}

	report.Summary = model.Summarize(report.Results)
	log.Info("bulk check completed",
		slog.Int("valid", report.Summary.Valid),
		slog.Int("failed", report.Summary.Failed),
	)
	return report
}

func (c *BulkChecker) checkOne(ctx context.Context, item model.DeviceSecret, opts BulkOptions) model.BulkCheckResult {
	result := model.BulkCheckResult{
		Label:     item.DisplayLabel(),
		AccountID: item.AccountID,
	}

	cred, err := c.auth.AuthenticateWithDeviceSecret(ctx, item)
	if err != nil {
		result.Status = model.BulkStatusFailed
		result.Message = authMessage(err)
		return result
	}

	result.Status = model.BulkStatusSuccess
	data := &model.BulkAccountData{
		AccountID:   cred.AccountID,
		DisplayName: cred.DisplayName,
	}
	result.Data = data

	if opts.Detailed {
		doc, err := c.fetcher.FetchAccountDocument(ctx, cred)
		if err != nil {
			c.logger.Warn("bulk item data fetch failed", slog.String("label", result.Label), slog.Any("error", err))
			result.Message = msgValidNoData
			return result
		}
		summary := doc.Summary()
		data.DisplayName = doc.Account.DisplayName
		data.Summary = &summary
		data.Document = doc
	} else {
		summary, err := c.fetcher.FetchAccountSummary(ctx, cred)
		if err != nil {
			c.logger.Warn("bulk item data fetch failed", slog.String("label", result.Label), slog.Any("error", err))
			result.Message = msgValidNoData
			return result
		}
		data.DisplayName = summary.DisplayName
		data.Summary = summary
	}

	result.Message = msgValidAccount
	return result
}

func authMessage(err error) string {
	var authErr *model.AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return msgUnexpectedError
}

func cancelledResults(items []model.DeviceSecret) []model.BulkCheckResult {
	out := make([]model.BulkCheckResult, 0, len(items))
	for _, item := range items {
		out = append(out, model.BulkCheckResult{
			Label:     item.DisplayLabel(),
			AccountID: item.AccountID,
			Status:    model.BulkStatusFailed,
			Message:   msgCheckCancelled,
		})
	}
	return out
}
