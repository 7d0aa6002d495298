package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

const allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"

// Cors sets the CORS headers for the allowed origins ("*" allows any) and answers
// preflight OPTIONS requests. Requests from other origins are served without CORS headers.
func Cors(allowedOrigins []string) func(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	allowAny := allowed["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "":
			case allowAny, allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")
				w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
				w.Header().Add("Vary", "Origin")
			default:
				log.Debugf("CORS: origin not allowed for path [%s] and origin [%s]", r.URL.Path, origin)
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Allow", allowedMethods)
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
