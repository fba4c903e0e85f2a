package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit buckets requests per browsing context when the front end sends
// one, per client IP otherwise. Funnel traffic often shares NAT addresses;
// per-context keys keep one context's confirmation polls from starving
// another's.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(keyByContext),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "rate limit exceeded",
				"code":  "rate_limit",
			})
		}),
	)
}

func keyByContext(r *http.Request) (string, error) {
	if id := r.Header.Get("X-Context-ID"); id != "" {
		return "ctx:" + id, nil
	}
	return httprate.KeyByIP(r)
}
