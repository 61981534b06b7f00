package repository

import (
	"context"
	"fmt"
	"log/slog"

	"fortnite-checker-api/internal/config"
)

// Open builds the report repository selected by cfg.Type. It returns nil
// and no error when history is turned off with "none".
func Open(ctx context.Context, cfg config.ReportsConfig, log *slog.Logger) (ReportRepository, error) {
	var (
		repo *SQLReportRepository
		err  error
	)
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "sqlite":
		repo, err = NewSQLiteReportRepository(ctx, cfg.Path, log)
	case "mysql":
		repo, err = NewMySQLReportRepository(ctx, cfg.MySQLDSN(), log)
	case "postgres", "postgresql":
		repo, err = NewPostgresReportRepository(ctx, cfg.PostgresDSN(), log)
	default:
		return nil, fmt.Errorf("unknown reports database type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}
