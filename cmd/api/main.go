package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"fortnite-checker-api/internal/app"
	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/handler"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/middleware"
	"fortnite-checker-api/internal/repository"
	"fortnite-checker-api/internal/router"
	"fortnite-checker-api/internal/service"
)

func main() {
	cfg := config.MustLoad()
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L

	log.Info("starting service",
		slog.String("name", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Environment),
	)

	ctx := context.Background()

	services := app.NewServices(ctx, cfg, log)
	defer func() {
		if err := services.Close(); err != nil {
			log.Error("failed to close cache", slog.Any("error", err))
		}
	}()

	// Report history is optional: a broken database degrades to no history.
	reportRepo, err := repository.Open(ctx, cfg.Reports, log)
	if err != nil {
		log.Warn("report history unavailable", slog.String("type", cfg.Reports.Type), slog.Any("error", err))
		reportRepo = nil
	}
	if reportRepo != nil {
		defer reportRepo.Close()
	}
	reports := service.NewReportService(reportRepo, log)

	var cleanup *service.CleanupScheduler
	if reportRepo != nil {
		cleanup = service.NewCleanupScheduler(reportRepo, cfg.Reports, log)
		cleanup.Start()
	}

	healthHandler := handler.New(cfg.App.Name, cfg.App.Version)
	authHandler := handler.NewAuthHandler(services.Broker)
	accountHandler := handler.NewAccountHandler(services.Aggregator)
	bulkHandler := handler.NewBulkHandler(services.Bulk, reports, cfg.Bulk.MaxItems)

	var pruner handler.ReportPruner
	if cleanup != nil {
		pruner = cleanup
	}
	adminHandler := handler.NewAdminHandler(services.CatalogCache, reports, pruner)

	if len(cfg.App.APIKeys) == 0 {
		log.Warn("API_KEYS is empty, API key auth disabled")
	}
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.App.APIKeys})

	r := router.New(router.Config{
		Handler:        healthHandler,
		AuthHandler:    authHandler,
		AccountHandler: accountHandler,
		BulkHandler:    bulkHandler,
		AdminHandler:   adminHandler,
		AuthMiddleware: authMiddleware,
		Logger:         log,
		AllowedOrigins: cfg.App.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", slog.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if cleanup != nil {
		cleanup.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", slog.Any("error", err))
	}

	log.Info("server stopped")
}
