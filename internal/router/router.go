package router

import (
	"log/slog"
	"net/http"

	"fortnite-checker-api/internal/handler"
	"fortnite-checker-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	BulkHandler    *handler.BulkHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *slog.Logger
	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(middleware.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/health", cfg.Handler.Health)
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.AuthHandler != nil {
				r.Route("/auth", func(r chi.Router) {
					r.Get("/device-code", cfg.AuthHandler.DeviceCode)
					r.Post("/poll", cfg.AuthHandler.Poll)
					r.Post("/device-auth", cfg.AuthHandler.DeviceAuth)
				})
			}

			if cfg.AccountHandler != nil {
				r.Post("/account/data", cfg.AccountHandler.Data)
			}

			if cfg.BulkHandler != nil {
				r.Route("/bulk", func(r chi.Router) {
					r.Post("/check", cfg.BulkHandler.Check)
					r.Get("/reports", cfg.BulkHandler.ListReports)
					r.Get("/reports/{id}", cfg.BulkHandler.GetReport)
				})
			}

			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Delete("/cache", cfg.AdminHandler.ClearCache)
					r.Post("/reports/prune", cfg.AdminHandler.PruneReports)
				})
			}
		})
	})

	return r
}
