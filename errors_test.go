package azkvauth

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticationError(t *testing.T) {
	err := &AuthenticationError{}
	assert.Equal(t, "authentication failed", err.Error())

	err = &AuthenticationError{
		Method:     "GET",
		URL:        "http://169.254.169.254/metadata/identity/oauth2/token",
		StatusCode: 400,
		Body:       `{"error":"invalid_request"}`,
	}
	assert.Equal(t,
		`authentication failed: GET http://169.254.169.254/metadata/identity/oauth2/token - 400, body: {"error":"invalid_request"}`,
		err.Error())

	inner := errors.New("boom")
	err = &AuthenticationError{Method: "POST", URL: "https://example.com", Err: inner}
	assert.Equal(t, "authentication failed: POST https://example.com: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestNotUsableError(t *testing.T) {
	inner := errors.New("connection refused")
	err := notUsable("instance metadata service not available: %w", inner)

	assert.Equal(t, "instance metadata service not available: connection refused", err.Error())
	assert.ErrorIs(t, err, inner)

	var nerr *NotUsableError
	assert.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &nerr)
}

func TestSelectionExhaustedError(t *testing.T) {
	err := &SelectionExhaustedError{Failures: []ProbeFailure{{"a", "b"}}}

	assert.Equal(t, "No suitable authentication method found.", err.Error())
	assert.ErrorIs(t, err, ErrNoSuitableAuthenticator)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), ErrNoSuitableAuthenticator)
	assert.NotErrorIs(t, err, errors.New("No suitable authentication method found."))
}

func TestTruncateBody(t *testing.T) {
	assert.Empty(t, truncateBody(nil))
	assert.Equal(t, "short", truncateBody([]byte("short")))

	exact := strings.Repeat("a", maxErrorBody)
	assert.Equal(t, exact, truncateBody([]byte(exact)))

	long := strings.Repeat("a", maxErrorBody+10)
	assert.Equal(t, exact+"...", truncateBody([]byte(long)))
}
