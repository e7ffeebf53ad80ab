package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/topicrelay/topicrelay/internal/api/middleware"
	"github.com/topicrelay/topicrelay/internal/api/response"
	"github.com/topicrelay/topicrelay/internal/notification"
)

// Dispatcher is the notification service as seen by the HTTP layer.
type Dispatcher interface {
	Send(ctx context.Context, req notification.NotificationRequest) (notification.Outcome, error)
	Subscribe(ctx context.Context, req notification.SubscriptionRequest) (notification.Outcome, error)
	Unsubscribe(ctx context.Context, req notification.SubscriptionRequest) (notification.Outcome, error)
}

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(dispatcher Dispatcher, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SendNotification handles POST /notifications.
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	req, rejected, err := parseNotification(r)
	if !h.accept(w, r, rejected, err) {
		return
	}
	outcome, err := h.dispatcher.Send(r.Context(), req)
	h.finish(w, r, notification.OperationSend, outcome, err)
}

// Subscribe handles POST /notifications/subscribe.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, rejected, err := parseSubscription(r)
	if !h.accept(w, r, rejected, err) {
		return
	}
	outcome, err := h.dispatcher.Subscribe(r.Context(), req)
	h.finish(w, r, notification.OperationSubscribe, outcome, err)
}

// Unsubscribe handles POST /notifications/unsubscribe.
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	req, rejected, err := parseSubscription(r)
	if !h.accept(w, r, rejected, err) {
		return
	}
	outcome, err := h.dispatcher.Unsubscribe(r.Context(), req)
	h.finish(w, r, notification.OperationUnsubscribe, outcome, err)
}

// accept writes the response for a body that cannot be dispatched and
// reports whether the request may proceed.
func (h *NotificationHandler) accept(w http.ResponseWriter, r *http.Request, rejected *notification.Outcome, err error) bool {
	switch {
	case err == nil && rejected == nil:
		return true
	case err == nil:
		response.Outcome(w, r, *rejected)
	case errors.Is(err, errBodyTooLarge):
		response.JSON(w, r, http.StatusRequestEntityTooLarge, notification.Failed("Request body too large"))
	case errors.Is(err, notification.ErrMalformedBody):
		response.BadRequest(w, r, "Invalid JSON body")
	default:
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("failed to read request body")
		response.InternalError(w, r)
	}
	return false
}

func (h *NotificationHandler) finish(w http.ResponseWriter, r *http.Request, operation string, outcome notification.Outcome, err error) {
	if err != nil {
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("operation", operation).
			Msg("notification request failed")
		response.InternalError(w, r)
		return
	}
	response.Outcome(w, r, outcome)
}
