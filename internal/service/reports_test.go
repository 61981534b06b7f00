package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/repository"
)

func TestReportService_Disabled(t *testing.T) {
	s := NewReportService(nil, logger.Discard())
	ctx := context.Background()

	assert.False(t, s.Enabled())
	assert.False(t, s.Record(ctx, &model.BulkReport{ID: "r"}))

	_, err := s.Get(ctx, "r")
	assert.ErrorIs(t, err, ErrReportsDisabled)
	_, _, err = s.List(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrReportsDisabled)

	stats, err := s.Stats(ctx)
	assert.NoError(t, err)
	assert.Nil(t, stats)
}

func TestReportService_RecordAndRead(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.NewSQLiteReportRepository(ctx, filepath.Join(t.TempDir(), "reports.db"), logger.Discard())
	require.NoError(t, err)
	defer repo.Close()

	s := NewReportService(repo, logger.Discard())
	require.True(t, s.Enabled())

	results := []model.BulkCheckResult{{Label: "a", AccountID: "a", Status: model.BulkStatusFailed, Message: "Authentication Failed"}}
	for _, id := range []string{"r1", "r2", "r3"} {
		report := &model.BulkReport{ID: id, CreatedAt: time.Now().UTC(), Results: results, Summary: model.Summarize(results)}
		require.True(t, s.Record(ctx, report))
	}
	assert.False(t, s.Record(ctx, &model.BulkReport{ID: "r1", CreatedAt: time.Now()}), "duplicate id is logged, not returned")

	page, total, err := s.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)

	got, err := s.Get(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, results[0].Message, got.Results[0].Message)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrReportNotFound)
}
