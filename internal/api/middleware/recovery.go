package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/topicrelay/topicrelay/internal/notification"
)

// Recovery returns a middleware that turns panics into the generic 500
// Outcome. The panic value is logged, never returned to the caller.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					log.Error().
						Str("request_id", GetRequestID(r.Context())).
						Interface("error", err).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered")

					writeOutcome(w, http.StatusInternalServerError, notification.MsgInternalError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
