package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// NewMySQLReportRepository connects to MySQL and applies migrations.
// dsn must set parseTime=true.
func NewMySQLReportRepository(ctx context.Context, dsn string, log *slog.Logger) (*SQLReportRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo, err := newSQLReportRepository(db, dialectMySQL, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.logger.Info("report repository ready")
	return repo, nil
}
