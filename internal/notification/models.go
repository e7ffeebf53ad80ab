// Package notification validates push notification requests and dispatches
// them to a push provider, translating every result into an Outcome.
package notification

// Outcome is the uniform result of every notification operation.
// It is always returned as a value, including on failure.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Succeeded creates a successful Outcome.
func Succeeded(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

// Failed creates a failed Outcome.
func Failed(message string) Outcome {
	return Outcome{Success: false, Message: message}
}

// Outcome messages returned to callers.
const (
	MsgMissingNotificationFields = "Please add message, topic, and title"
	MsgMissingSubscriptionFields = "Please provide token and topic"
	MsgInvalidTopic              = "Topic name contains invalid characters. Only alphanumeric characters, dash, underscore, dot, tilde, and percent are allowed."
	MsgNotificationSent          = "Notification sent successfully"
	MsgInvalidCredential         = "Firebase credentials are invalid. Please check: 1) Server time is synced, 2) Service account key is valid and not revoked in Firebase Console"
	MsgInvalidPayload            = "Invalid notification payload. Please check topic, title, and message format"
	MsgSendError                 = "Error sending notification"
	MsgInternalError             = "Internal server error"
)

// NotificationRequest is a request to publish a notification to a topic.
type NotificationRequest struct {
	Title   string
	Message string
	Topic   string
	Data    map[string]string
}

// SubscriptionRequest is a request to (un)subscribe a device token to a topic.
// Topic holds the caller-supplied value; normalization happens at dispatch.
type SubscriptionRequest struct {
	Token string
	Topic string
}

// Notification is the visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Message is the payload handed to the provider for a topic send.
type Message struct {
	Notification Notification      `json:"notification"`
	Data         map[string]string `json:"data"`
	Topic        string            `json:"topic"`
}

// TopicError describes the failure for a single token in a topic
// management batch.
type TopicError struct {
	Index  int    `json:"index"`
	Reason string `json:"error"`
}

// TopicResponse is the batch result of a topic (un)subscription.
type TopicResponse struct {
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	Errors       []TopicError `json:"errors"`
}

// NewMessage builds the provider payload for a notification request.
// topic must already be in bare form.
func NewMessage(req NotificationRequest, topic string) *Message {
	data := req.Data
	if data == nil {
		data = map[string]string{}
	}
	return &Message{
		Notification: Notification{
			Title: req.Title,
			Body:  req.Message,
		},
		Data:  data,
		Topic: topic,
	}
}
