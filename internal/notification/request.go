package notification

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Fields is a decoded request body. Values keep their JSON types
// (string, float64, bool, nil, []any, map[string]any).
type Fields map[string]any

// DecodeFields decodes a JSON request body. An empty body yields empty
// Fields; anything other than a JSON object yields ErrMalformedBody.
func DecodeFields(body []byte) (Fields, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Fields{}, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, ErrMalformedBody
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrMalformedBody
	}
	return Fields(obj), nil
}

// text returns the field coerced to a string, or "" when the field is
// falsy (absent, null, "", 0, false).
func (f Fields) text(key string) string {
	v, ok := f[key]
	if !ok || !truthy(v) {
		return ""
	}
	return coerce(v)
}

// ParseNotificationRequest decodes a send request body. The returned
// Outcome is non-nil when the request must be answered without calling the
// provider; the error is non-nil only for a body that is not a JSON object.
func ParseNotificationRequest(body []byte) (NotificationRequest, *Outcome, error) {
	f, err := DecodeFields(body)
	if err != nil {
		return NotificationRequest{}, nil, err
	}
	req, o := NotificationFromFields(f)
	return req, o, nil
}

// ParseSubscriptionRequest decodes a subscribe or unsubscribe request body.
func ParseSubscriptionRequest(body []byte) (SubscriptionRequest, *Outcome, error) {
	f, err := DecodeFields(body)
	if err != nil {
		return SubscriptionRequest{}, nil, err
	}
	req, o := SubscriptionFromFields(f)
	return req, o, nil
}

// NotificationFromFields builds a NotificationRequest from decoded fields.
// Missing fields are reported first; after that, data must be absent, null
// or an object of string values, otherwise the payload is rejected.
func NotificationFromFields(f Fields) (NotificationRequest, *Outcome) {
	req := NotificationRequest{
		Title:   f.text("title"),
		Message: f.text("message"),
		Topic:   f.text("topic"),
		Data:    map[string]string{},
	}
	if o := ValidateNotification(req); o != nil {
		return req, o
	}

	switch data := f["data"].(type) {
	case nil:
	case map[string]any:
		for k, v := range data {
			s, ok := v.(string)
			if !ok {
				return req, invalidPayload()
			}
			req.Data[k] = s
		}
	default:
		return req, invalidPayload()
	}
	return req, nil
}

// SubscriptionFromFields builds a SubscriptionRequest from decoded fields.
func SubscriptionFromFields(f Fields) (SubscriptionRequest, *Outcome) {
	req := SubscriptionRequest{
		Token: f.text("token"),
		Topic: f.text("topic"),
	}
	return req, ValidateSubscription(req)
}

func invalidPayload() *Outcome {
	o := Failed(MsgInvalidPayload)
	return &o
}

// ValidateNotification returns a failed Outcome when title, message or
// topic is missing, nil otherwise.
func ValidateNotification(req NotificationRequest) *Outcome {
	if req.Message == "" || req.Topic == "" || req.Title == "" {
		o := Failed(MsgMissingNotificationFields)
		return &o
	}
	return nil
}

// ValidateSubscription returns a failed Outcome when token or topic is
// missing, nil otherwise.
func ValidateSubscription(req SubscriptionRequest) *Outcome {
	if req.Token == "" || req.Topic == "" {
		o := Failed(MsgMissingSubscriptionFields)
		return &o
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case bool:
		return t
	default:
		return true
	}
}

// coerce converts a JSON value to a string the way JavaScript's String()
// does.
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = coerce(e)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// formatNumber renders a float64 like Number.prototype.toString: plain
// decimal between 1e-6 and 1e21, exponent form outside, with no exponent
// zero padding ("1e+21", "1.5e-7").
func formatNumber(n float64) string {
	switch {
	case n == 0:
		return "0"
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	if abs := math.Abs(n); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(n, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
