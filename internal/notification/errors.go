package notification

import "errors"

// Provider failure kinds. Providers wrap their native errors with one of
// these so the service can pick a caller-facing message.
var (
	// ErrInvalidCredential means the provider rejected or could not obtain
	// credentials (revoked key, clock skew, bad token exchange).
	ErrInvalidCredential = errors.New("invalid provider credential")

	// ErrInvalidArgument means the provider rejected the payload.
	ErrInvalidArgument = errors.New("invalid notification argument")

	// ErrProviderNotInitialized is returned when the provider is used before
	// its one-time initialization succeeded. It is the only error that
	// escapes the service boundary.
	ErrProviderNotInitialized = errors.New("push provider not initialized")

	// ErrMalformedBody is returned when a request body is not a JSON object.
	ErrMalformedBody = errors.New("request body must be a JSON object")
)

// ProviderError tags a native provider error with a failure kind. Its
// message is the provider's own text; errors.Is matches both Kind and Err.
type ProviderError struct {
	Kind error
	Err  error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
