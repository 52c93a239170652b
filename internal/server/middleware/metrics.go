package middleware

import (
	"net/http"
	"time"

	"github.com/iudanet/taskauth/internal/server/metrics"
)

// MetricsMiddleware записывает длительность запросов в гистограмму.
// Метка route берется из шаблона ServeMux, чтобы не плодить серии по путям.
func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.ObserveHTTP(r.Method, routeOf(r), wrapped.statusCode, time.Since(start))
		})
	}
}
