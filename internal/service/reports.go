package service

import (
	"context"
	"errors"
	"log/slog"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/repository"
)

// ErrReportsDisabled is returned when no report repository is configured.
var ErrReportsDisabled = errors.New("report history is disabled")

// ReportService stores and reads bulk check history. A nil repository
// turns history off: Record becomes a no-op and reads fail with ErrReportsDisabled.
type ReportService struct {
	repo   repository.ReportRepository
	logger *slog.Logger
}

// NewReportService creates a report service. repo may be nil.
func NewReportService(repo repository.ReportRepository, log *slog.Logger) *ReportService {
	return &ReportService{repo: repo, logger: logger.Component(log, "reports")}
}

// Enabled reports whether history is stored.
func (s *ReportService) Enabled() bool {
	return s.repo != nil
}

// Record stores report. Storage failures are logged, never returned, so a
// finished bulk run is always delivered to the caller.
func (s *ReportService) Record(ctx context.Context, report *model.BulkReport) bool {
	if s.repo == nil {
		return false
	}
	if err := s.repo.Save(ctx, report); err != nil {
		s.logger.Error("failed to save report", slog.String("report_id", report.ID), slog.Any("error", err))
		return false
	}
	return true
}

// Get loads a stored report.
func (s *ReportService) Get(ctx context.Context, id string) (*model.BulkReport, error) {
	if s.repo == nil {
		return nil, ErrReportsDisabled
	}
	return s.repo.Get(ctx, id)
}

// List returns one page of report headers and the total count.
func (s *ReportService) List(ctx context.Context, page, limit int) ([]model.BulkReportInfo, int64, error) {
	if s.repo == nil {
		return nil, 0, ErrReportsDisabled
	}
	if page < 1 {
		page = 1
	}
	return s.repo.List(ctx, limit, (page-1)*limit)
}

// Stats returns repository stats, or nil when history is disabled.
func (s *ReportService) Stats(ctx context.Context) (*repository.ReportStats, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Stats(ctx)
}
