package httpx

import (
	"net/http"
	"strconv"

	"booklist/internal/platform/metrics"
)

// MetricsMiddleware counts requests per route pattern. It must wrap the
// ServeMux directly so the matched pattern is visible after dispatch.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		})
	}
}
