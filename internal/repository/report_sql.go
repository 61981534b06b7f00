package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
)

//go:embed migrations/*/*.sql
var embedMigrations embed.FS

// dialect describes the differences between the supported SQL backends.
type dialect struct {
	name          string // goose dialect and stats backend name
	migrationsDir string
	numbered      bool // $1-style placeholders
}

var (
	dialectSQLite   = dialect{name: "sqlite3", migrationsDir: "migrations/sqlite"}
	dialectMySQL    = dialect{name: "mysql", migrationsDir: "migrations/mysql"}
	dialectPostgres = dialect{name: "postgres", migrationsDir: "migrations/postgres", numbered: true}
)

// rebind rewrites '?' placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLReportRepository implements ReportRepository on database/sql.
type SQLReportRepository struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var _ ReportRepository = (*SQLReportRepository)(nil)

func newSQLReportRepository(db *sql.DB, d dialect, log *slog.Logger) (*SQLReportRepository, error) {
	if err := migrate(db, d); err != nil {
		return nil, err
	}
	return &SQLReportRepository{
		db:      db,
		dialect: d,
		logger:  logger.Component(log, "reports_"+d.name),
	}, nil
}

func migrate(db *sql.DB, d dialect) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.name); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, d.migrationsDir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Save implements ReportRepository.
func (r *SQLReportRepository) Save(ctx context.Context, report *model.BulkReport) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.dialect.rebind(`
		INSERT INTO bulk_reports (id, created_at, total, valid, failed)
		VALUES (?, ?, ?, ?, ?)`),
		report.ID, report.CreatedAt.UTC(), report.Summary.Total, report.Summary.Valid, report.Summary.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, r.dialect.rebind(`
		INSERT INTO bulk_report_results
			(report_id, position, label, account_id, status, message, display_name, summary_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, res := range report.Results {
		displayName, summary, err := resultData(res)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, report.ID, i, res.Label, res.AccountID,
			string(res.Status), res.Message, displayName, summary); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("report saved",
		slog.String("report_id", report.ID),
		slog.Int("results", len(report.Results)),
	)
	return nil
}

func resultData(res model.BulkCheckResult) (string, sql.NullString, error) {
	if res.Data == nil {
		return "", sql.NullString{}, nil
	}
	if res.Data.Summary == nil {
		return res.Data.DisplayName, sql.NullString{}, nil
	}
	data, err := json.Marshal(res.Data.Summary)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("failed to encode summary: %w", err)
	}
	return res.Data.DisplayName, sql.NullString{String: string(data), Valid: true}, nil
}

// Get implements ReportRepository.
func (r *SQLReportRepository) Get(ctx context.Context, id string) (*model.BulkReport, error) {
	report := &model.BulkReport{ID: id}

	err := r.db.QueryRowContext(ctx, r.dialect.rebind(`
		SELECT created_at, total, valid, failed FROM bulk_reports WHERE id = ?`), id).
		Scan(&report.CreatedAt, &report.Summary.Total, &report.Summary.Valid, &report.Summary.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	report.CreatedAt = report.CreatedAt.UTC()

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
		SELECT label, account_id, status, message, display_name, summary_json
		FROM bulk_report_results WHERE report_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	report.Results = []model.BulkCheckResult{}
	for rows.Next() {
		var (
			res         model.BulkCheckResult
			status      string
			displayName string
			summary     sql.NullString
		)
		if err := rows.Scan(&res.Label, &res.AccountID, &status, &res.Message, &displayName, &summary); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Status = model.BulkStatus(status)

		if res.Status == model.BulkStatusSuccess {
			res.Data = &model.BulkAccountData{AccountID: res.AccountID, DisplayName: displayName}
			if summary.Valid && summary.String != "" {
				var s model.AccountSummary
				if err := json.Unmarshal([]byte(summary.String), &s); err != nil {
					return nil, fmt.Errorf("failed to decode summary: %w", err)
				}
				res.Data.Summary = &s
			}
		}
		report.Results = append(report.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return report, nil
}

// List implements ReportRepository.
func (r *SQLReportRepository) List(ctx context.Context, limit, offset int) ([]model.BulkReportInfo, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bulk_reports`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
		SELECT id, created_at, total, valid, failed FROM bulk_reports
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	infos := []model.BulkReportInfo{}
	for rows.Next() {
		var info model.BulkReportInfo
		if err := rows.Scan(&info.ID, &info.CreatedAt, &info.Summary.Total, &info.Summary.Valid, &info.Summary.Failed); err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		info.CreatedAt = info.CreatedAt.UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read reports: %w", err)
	}
	return infos, total, nil
}

// DeleteOlderThan implements ReportRepository. Results go with their report.
func (r *SQLReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff = cutoff.UTC()
	if _, err := tx.ExecContext(ctx, r.dialect.rebind(`
		DELETE FROM bulk_report_results WHERE report_id IN
			(SELECT id FROM bulk_reports WHERE created_at < ?)`), cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete results: %w", err)
	}

	res, err := tx.ExecContext(ctx, r.dialect.rebind(`DELETE FROM bulk_reports WHERE created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}

// Stats implements ReportRepository.
func (r *SQLReportRepository) Stats(ctx context.Context) (*ReportStats, error) {
	stats := &ReportStats{Backend: r.dialect.name}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0), COALESCE(SUM(valid), 0), COALESCE(SUM(failed), 0)
		FROM bulk_reports`).Scan(&stats.Reports, &stats.Checked, &stats.Valid, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if stats.Reports > 0 {
		var last time.Time
		err := r.db.QueryRowContext(ctx, `SELECT created_at FROM bulk_reports ORDER BY created_at DESC LIMIT 1`).Scan(&last)
		if err != nil {
			return nil, fmt.Errorf("failed to get last report: %w", err)
		}
		last = last.UTC()
		stats.LastReportAt = &last
	}
	return stats, nil
}

// Close implements ReportRepository.
func (r *SQLReportRepository) Close() error {
	return r.db.Close()
}
