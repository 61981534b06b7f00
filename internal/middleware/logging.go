package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"fortnite-checker-api/internal/logger"
)

// NewLogging returns an access log middleware. It also stores a request-scoped
// logger, tagged with the request id, in the request context.
func NewLogging(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = logger.L
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base.With(slog.String("request_id", GetRequestID(r.Context())))
			ctx := logger.WithContext(r.Context(), l)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
			}
			switch {
			case wrapped.statusCode >= 500:
				l.Error("request", attrs...)
			case wrapped.statusCode >= 400:
				l.Warn("request", attrs...)
			default:
				l.Info("request", attrs...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Flush lets streaming handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
