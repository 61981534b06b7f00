package repository

import (
	"context"
	"errors"
	"time"

	"fortnite-checker-api/internal/model"
)

// ErrReportNotFound is returned by Get for an unknown report id.
var ErrReportNotFound = errors.New("report not found")

// ReportRepository persists bulk check reports. Stored results keep the label,
// account id, outcome and account summary; secrets, tokens and full documents
// are never written.
type ReportRepository interface {
	// Save stores a report and its results in one transaction.
	Save(ctx context.Context, report *model.BulkReport) error

	// Get loads a report with its results in input order.
	Get(ctx context.Context, id string) (*model.BulkReport, error)

	// List returns report headers, newest first, and the total count.
	List(ctx context.Context, limit, offset int) ([]model.BulkReportInfo, int64, error)

	// DeleteOlderThan removes reports created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats returns aggregate figures over all stored reports.
	Stats(ctx context.Context) (*ReportStats, error)

	// Close closes the repository connection.
	Close() error
}

// ReportStats summarises stored reports.
type ReportStats struct {
	Backend      string     `json:"backend"`
	Reports      int64      `json:"reports"`
	Checked      int64      `json:"checked"`
	Valid        int64      `json:"valid"`
	Failed       int64      `json:"failed"`
	LastReportAt *time.Time `json:"lastReportAt,omitempty"`
}
