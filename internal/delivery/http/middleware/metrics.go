package middleware

import (
	"net/http"
	"time"

	"secretsanta/internal/metrics"
)

// Metrics records request counts and latency per ServeMux route pattern.
// next must be (or wrap) the ServeMux so r.Pattern is set once it returns.
func Metrics(m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, wrapped.status, time.Since(start).Seconds())
	})
}
