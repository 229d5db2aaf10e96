package azkvauth

import (
	"errors"
	"fmt"
)

// ErrNoSuitableAuthenticator is returned (wrapped in a
// *SelectionExhaustedError) when none of the authenticators are usable.
//
//nolint:stylecheck,revive
var ErrNoSuitableAuthenticator = errors.New("No suitable authentication method found.")

// NotUsableError signals that an authenticator can't be used in the current
// environment - for example a required environment variable is missing, or
// the metadata service is unreachable. AuthenticatorFactory treats it as a
// reason to move on to the next authenticator.
type NotUsableError struct {
	Err error
}

func notUsable(format string, args ...any) error {
	return &NotUsableError{Err: fmt.Errorf(format, args...)}
}

func (e *NotUsableError) Error() string {
	return e.Err.Error()
}

func (e *NotUsableError) Unwrap() error {
	return e.Err
}

// ProbeFailure records why an authenticator was skipped during selection.
type ProbeFailure struct {
	Authenticator string
	Reason        string
}

// SelectionExhaustedError is returned by AuthenticatorFactory when no
// authenticator is usable. Its message is always the message of
// ErrNoSuitableAuthenticator; the individual reasons are in Failures.
type SelectionExhaustedError struct {
	Failures []ProbeFailure
}

func (e *SelectionExhaustedError) Error() string {
	return ErrNoSuitableAuthenticator.Error()
}

func (e *SelectionExhaustedError) Is(target error) bool {
	return target == ErrNoSuitableAuthenticator
}

// AuthenticationError is returned when a token request fails, either with a
// non-2xx response or with a body that doesn't contain a usable token.
type AuthenticationError struct {
	// Err is the underlying error, if any
	Err    error
	Method string
	URL    string
	// Body is the response body, truncated
	Body       string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	msg := "authentication failed"

	if e.Method != "" {
		msg += fmt.Sprintf(": %s %s", e.Method, e.URL)
	}

	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" - %d", e.StatusCode)
	}

	if e.Body != "" {
		msg += ", body: " + e.Body
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// maxErrorBody is how much of a response body is kept in an
// AuthenticationError
const maxErrorBody = 256

func truncateBody(b []byte) string {
	if len(b) <= maxErrorBody {
		return string(b)
	}

	return string(b[:maxErrorBody]) + "..."
}
