package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/topicrelay/topicrelay/internal/notification"
)

// writeOutcome writes a failed Outcome body. Kept here rather than in the
// response package, which imports middleware.
func writeOutcome(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(notification.Failed(message))
}

// statusOf returns the recorded status, defaulting to 200 when the handler
// never wrote a header.
func statusOf(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
