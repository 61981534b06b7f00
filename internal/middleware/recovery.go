package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/pkg/apierror"
	"fortnite-checker-api/pkg/response"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.FromContext(r.Context()).Error("panic recovered",
					slog.Any("panic", err),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)

				response.Error(w, r, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
