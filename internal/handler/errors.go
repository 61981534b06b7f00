package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/repository"
	"fortnite-checker-api/internal/service"
	"fortnite-checker-api/pkg/apierror"
	"fortnite-checker-api/pkg/response"
)

// writeError maps domain errors onto API errors and writes them.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		upstreamErr *model.UpstreamAuthError
		authErr     *model.AuthError
		aggErr      *model.AggregationError
		apiErr      *apierror.Error
	)
	switch {
	case errors.As(err, &apiErr):
		response.Error(w, r, apiErr)
	case errors.As(err, &upstreamErr):
		log.Warn("upstream auth failed", slog.Int("status", upstreamErr.StatusCode), slog.Any("error", err))
		response.Error(w, r, apierror.UpstreamAuth(upstreamErr.Message).WithUpstream(upstreamErr.Payload))
	case errors.As(err, &authErr):
		e := apierror.AuthFailed(authErr.Message)
		if authErr.Code != "" {
			e.WithDetails(apierror.FieldError{Field: "errorCode", Message: authErr.Code})
		}
		response.Error(w, r, e)
	case errors.As(err, &aggErr):
		log.Warn("account aggregation failed", slog.String("stage", aggErr.Stage), slog.Any("error", err))
		response.Error(w, r, apierror.Aggregation("Failed to fetch account data").
			WithDetails(
				apierror.FieldError{Field: "stage", Message: aggErr.Stage},
				apierror.FieldError{Field: "reason", Message: aggErr.Message},
			).
			WithUpstream(aggErr.Payload))
	case errors.Is(err, service.ErrReportsDisabled):
		response.Error(w, r, apierror.ServiceUnavailable("Report history is disabled"))
	case errors.Is(err, repository.ErrReportNotFound):
		response.Error(w, r, apierror.NotFound("Report not found"))
	default:
		log.Error("request failed", slog.Any("error", err))
		response.Error(w, r, apierror.InternalError(""))
	}
}

// decodeJSON decodes the request body into v, capped at maxBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.BadRequest("request body too large")
		}
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

// pagination reads page and limit query parameters.
func pagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
