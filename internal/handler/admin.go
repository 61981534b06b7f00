package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"fortnite-checker-api/internal/cache"
	"fortnite-checker-api/internal/repository"
	"fortnite-checker-api/pkg/response"
)

// CatalogCacheAdmin exposes catalog cache maintenance.
type CatalogCacheAdmin interface {
	Stats(ctx context.Context) (cache.Stats, error)
	Clear(ctx context.Context) error
}

// ReportAdmin exposes report history stats and pruning.
type ReportAdmin interface {
	Stats(ctx context.Context) (*repository.ReportStats, error)
}

// ReportPruner runs a retention pass on demand.
type ReportPruner interface {
	RunNow(ctx context.Context) (int64, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	cache     CatalogCacheAdmin
	reports   ReportAdmin
	pruner    ReportPruner
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. Any dependency may be nil.
func NewAdminHandler(c CatalogCacheAdmin, reports ReportAdmin, pruner ReportPruner) *AdminHandler {
	return &AdminHandler{
		cache:     c,
		reports:   reports,
		pruner:    pruner,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.cache != nil {
		if cs, err := h.cache.Stats(ctx); err == nil {
			stats["catalog_cache"] = map[string]interface{}{
				"status":  "connected",
				"backend": cs.Backend,
				"entries": cs.Entries,
				"hits":    cs.Hits,
				"misses":  cs.Misses,
			}
		} else {
			stats["catalog_cache"] = map[string]interface{}{"status": "error", "error": err.Error()}
		}
	} else {
		stats["catalog_cache"] = map[string]interface{}{"status": "not_configured"}
	}

	stats["reports"] = map[string]interface{}{"status": "not_configured"}
	if h.reports != nil {
		rs, err := h.reports.Stats(ctx)
		switch {
		case err != nil:
			stats["reports"] = map[string]interface{}{"status": "error", "error": err.Error()}
		case rs != nil:
			stats["reports"] = rs
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		response.OK(w, map[string]string{"status": "not_configured"})
		return
	}
	if err := h.cache.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]string{"status": "cleared"})
}

// PruneReports handles POST /api/v1/admin/reports/prune
func (h *AdminHandler) PruneReports(w http.ResponseWriter, r *http.Request) {
	if h.pruner == nil {
		response.OK(w, map[string]interface{}{"deleted": 0})
		return
	}
	deleted, err := h.pruner.RunNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{"deleted": deleted})
}
