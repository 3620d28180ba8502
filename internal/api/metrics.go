package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const unmatched = "unmatched"

// metricsMiddleware records exactly one observation per request. Recording
// is deferred so it also runs when a panic escapes the handler chain.
// Uses the chi route pattern (not the raw path) to avoid unbounded cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		completed := false
		defer func() {
			status := ww.Status()
			switch {
			case !completed:
				status = http.StatusInternalServerError
			case status == 0:
				status = http.StatusOK
			}
			s.metrics.Record(r.Method, routePattern(r), status, time.Since(start).Seconds())
		}()

		next.ServeHTTP(ww, r)
		completed = true
	})
}

// routePattern extracts the matched chi route pattern, falling back to "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}
