package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/2beens/blogposts/internal/telemetry/metrics"
)

func RequestMetrics(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			begin := time.Now()
			resp := &responseWriter{ResponseWriter: respWriter, statusCode: http.StatusOK}

			// handler call
			next.ServeHTTP(resp, req)

			status := strconv.Itoa(resp.statusCode)
			metricsManager.HistogramRequestDuration.With(
				prometheus.Labels{
					"route":       routeName(req),
					"method":      req.Method,
					"status_code": status,
				},
			).Observe(time.Since(begin).Seconds())
			metricsManager.CounterRequests.With(
				prometheus.Labels{
					"method": req.Method,
					"status": status,
				},
			).Inc()
		})
	}
}

// routeName keeps the label cardinality bounded: path templates, never raw ids.
func routeName(req *http.Request) string {
	route := mux.CurrentRoute(req)
	if route == nil {
		return "unknown"
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if tpl, err := route.GetPathTemplate(); err == nil {
		return tpl
	}
	return "unknown"
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (r *responseWriter) WriteHeader(statusCode int) {
	if !r.wroteHeader {
		r.statusCode = statusCode
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

// Write without a prior WriteHeader sends an implicit 200.
func (r *responseWriter) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.statusCode = http.StatusOK
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}
