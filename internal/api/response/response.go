// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/topicrelay/topicrelay/internal/api/middleware"
	"github.com/topicrelay/topicrelay/internal/notification"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Outcome writes a completed operation. The status is 200 whether the
// operation succeeded or not.
func Outcome(w http.ResponseWriter, r *http.Request, outcome notification.Outcome) {
	JSON(w, r, http.StatusOK, outcome)
}

// BadRequest writes a 400 with a failed Outcome body.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	JSON(w, r, http.StatusBadRequest, notification.Failed(message))
}

// InternalError writes the generic 500 Outcome. The cause must be logged
// by the caller; it is never exposed.
func InternalError(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusInternalServerError, notification.Failed(notification.MsgInternalError))
}

// ServiceUnavailable writes a 503 with the given body.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, data interface{}) {
	JSON(w, r, http.StatusServiceUnavailable, data)
}
