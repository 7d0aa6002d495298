package middleware

import (
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogposts/internal/telemetry/metrics"
	"github.com/2beens/blogposts/pkg"
)

func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			resp := &responseWriter{ResponseWriter: respWriter, statusCode: http.StatusOK}
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					log.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					if metricsManager != nil {
						metricsManager.CounterHandleRequestPanic.Inc()
					}
					// the status is already on the wire, nothing left to answer with
					if resp.wroteHeader {
						return
					}
					pkg.WriteErrorResponse(resp, "internal server error", http.StatusInternalServerError)
				}
			}()

			// handler call
			next.ServeHTTP(resp, req)
		})
	}
}
