package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitByIP limits each client IP to requestsPerMinute. Zero disables
// the limit. Uses the address resolved by chi's RealIP middleware.
func RateLimitByIP(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

func rateLimitExceededHandler(w http.ResponseWriter, _ *http.Request) {
	// httprate does not expose the window reset, so advertise the full window.
	w.Header().Set("Retry-After", strconv.Itoa(60))
	writeOutcome(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}
