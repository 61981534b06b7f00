package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/service"
	"fortnite-checker-api/pkg/apierror"
	"fortnite-checker-api/pkg/response"
)

const maxBulkBody = 4 << 20

// BulkRunner runs a bulk credential check.
type BulkRunner interface {
	CheckAll(ctx context.Context, items []model.DeviceSecret, opts service.BulkOptions) model.BulkReport
}

// ReportStore persists and reads bulk reports.
type ReportStore interface {
	Record(ctx context.Context, report *model.BulkReport) bool
	Get(ctx context.Context, id string) (*model.BulkReport, error)
	List(ctx context.Context, page, limit int) ([]model.BulkReportInfo, int64, error)
}

// BulkHandler handles bulk checks and their stored reports.
type BulkHandler struct {
	runner   BulkRunner
	reports  ReportStore
	maxItems int
}

// NewBulkHandler creates a new bulk handler. maxItems <= 0 means no limit.
func NewBulkHandler(runner BulkRunner, reports ReportStore, maxItems int) *BulkHandler {
	return &BulkHandler{runner: runner, reports: reports, maxItems: maxItems}
}

// BulkCheckRequest is the body of POST /bulk/check.
type BulkCheckRequest struct {
	Accounts []model.DeviceSecret `json:"accounts"`
	Detailed bool                 `json:"detailed"`
}

// BulkCheckResponse is a finished report plus whether it was stored.
type BulkCheckResponse struct {
	*model.BulkReport
	Stored bool `json:"stored"`
}

// Check handles POST /bulk/check
func (h *BulkHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req BulkCheckRequest
	if err := decodeJSON(w, r, &req, maxBulkBody); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Accounts == nil {
		writeError(w, r, apierror.BadRequest("Accounts array is required"))
		return
	}
	if h.maxItems > 0 && len(req.Accounts) > h.maxItems {
		writeError(w, r, apierror.BadRequest(fmt.Sprintf("At most %d accounts per request", h.maxItems)))
		return
	}

	report := h.runner.CheckAll(r.Context(), req.Accounts, service.BulkOptions{Detailed: req.Detailed})
	if r.Context().Err() != nil {
		logger.FromContext(r.Context()).Warn("bulk check client went away", slog.String("report_id", report.ID))
	}

	stored := false
	if h.reports != nil {
		// The caller may have gone away; the finished report is still worth keeping.
		stored = h.reports.Record(context.WithoutCancel(r.Context()), &report)
	}

	response.OK(w, BulkCheckResponse{BulkReport: &report, Stored: stored})
}

// ListReports handles GET /bulk/reports
func (h *BulkHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, r, service.ErrReportsDisabled)
		return
	}
	page, limit := pagination(r)

	reports, total, err := h.reports.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []model.BulkReportInfo{}
	}
	response.JSONWithMeta(w, http.StatusOK, reports, page, limit, total)
}

// GetReport handles GET /bulk/reports/{id}
func (h *BulkHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, r, service.ErrReportsDisabled)
		return
	}

	report, err := h.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, report)
}
