package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
)

// ReportPruner deletes reports created before a cutoff.
type ReportPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupScheduler periodically prunes bulk reports past their retention.
type CleanupScheduler struct {
	repo      ReportPruner
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a cleanup scheduler.
func NewCleanupScheduler(repo ReportPruner, cfg config.ReportsConfig, log *slog.Logger) *CleanupScheduler {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupScheduler{
		repo:      repo,
		retention: cfg.Retention,
		interval:  interval,
		logger:    logger.Component(log, "cleanup"),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start runs one cleanup immediately and then every interval.
// It does nothing when retention is disabled or the scheduler already runs.
func (s *CleanupScheduler) Start() {
	if s.retention <= 0 {
		s.logger.Info("report retention disabled")
		return
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.interval)
	s.mu.Unlock()

	s.logger.Info("cleanup scheduler started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)

	go s.run()
}

func (s *CleanupScheduler) run() {
	s.runCleanup()
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			s.logger.Info("cleanup scheduler stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.RunNow(ctx); err != nil {
		s.logger.Error("report cleanup failed", slog.Any("error", err))
	}
}

// RunNow deletes every report older than the retention period.
func (s *CleanupScheduler) RunNow(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("expired reports removed", slog.Int64("deleted", deleted))
	}
	return deleted, nil
}

// Stop stops the scheduler. It is safe to call more than once.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}
