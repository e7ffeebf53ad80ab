package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/topicrelay/topicrelay/internal/notification"
)

var errBodyTooLarge = errors.New("request body too large")

// parseNotification reads a JSON or urlencoded send request.
func parseNotification(r *http.Request) (notification.NotificationRequest, *notification.Outcome, error) {
	if isForm(r) {
		fields, err := decodeForm(r)
		if err != nil {
			return notification.NotificationRequest{}, nil, err
		}
		req, o := notification.NotificationFromFields(fields)
		return req, o, nil
	}
	body, err := readBody(r)
	if err != nil {
		return notification.NotificationRequest{}, nil, err
	}
	return notification.ParseNotificationRequest(body)
}

// parseSubscription reads a JSON or urlencoded subscription request.
func parseSubscription(r *http.Request) (notification.SubscriptionRequest, *notification.Outcome, error) {
	if isForm(r) {
		fields, err := decodeForm(r)
		if err != nil {
			return notification.SubscriptionRequest{}, nil, err
		}
		req, o := notification.SubscriptionFromFields(fields)
		return req, o, nil
	}
	body, err := readBody(r)
	if err != nil {
		return notification.SubscriptionRequest{}, nil, err
	}
	return notification.ParseSubscriptionRequest(body)
}

func isForm(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded"
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return body, nil
}

// decodeForm collects urlencoded fields. Keys of the form data[name] are
// gathered into the data object.
func decodeForm(r *http.Request) (notification.Fields, error) {
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, notification.ErrMalformedBody
	}

	fields := notification.Fields{}
	data := map[string]any{}
	for key, values := range r.PostForm {
		if len(values) == 0 {
			continue
		}
		if name, ok := strings.CutPrefix(key, "data["); ok && strings.HasSuffix(name, "]") {
			data[strings.TrimSuffix(name, "]")] = values[0]
			continue
		}
		fields[key] = values[0]
	}
	if len(data) > 0 {
		fields["data"] = data
	}
	return fields, nil
}
