package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. The query string
// is never logged since it may carry the access token.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				event := logger.Info()
				if ww.Status() >= http.StatusInternalServerError {
					event = logger.Error()
				} else if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
					event = logger.Debug()
				}
				event.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
