package azkvauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token is a bearer token for the vault's HTTP API.
type Token struct {
	ExpiresOn   time.Time
	AccessToken string
}

// Expired reports whether the token is expired at the given time.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresOn)
}

// Authenticator acquires tokens for the resource it was created for.
//
// The set of authenticators is closed; the only implementations are
// [*ClientCredentialsEnvironmentAuthenticator] and
// [*ManagedCredentialsAuthenticator].
type Authenticator interface {
	// Name identifies the authentication method in logs, traces and errors.
	Name() string

	// Probe checks cheaply whether the authenticator can be used in the
	// current environment. A *NotUsableError is returned if it can't.
	Probe(ctx context.Context) error

	// Authenticate acquires a new token. Each call makes exactly one request,
	// with no retries. Failures are returned as *AuthenticationError.
	Authenticate(ctx context.Context) (Token, error)

	authenticator()
}

var (
	_ Authenticator = (*ClientCredentialsEnvironmentAuthenticator)(nil)
	_ Authenticator = (*ManagedCredentialsAuthenticator)(nil)
)

// tokenResponse is the JSON body returned by both the IMDS and the (v1) token
// endpoint. Only the fields we need are decoded.
type tokenResponse struct {
	ExpiresOn   any    `json:"expires_on"`
	AccessToken string `json:"access_token"`
}

func (r tokenResponse) token() (Token, error) {
	return newToken(r.AccessToken, r.ExpiresOn)
}

func newToken(accessToken string, expiresOn any) (Token, error) {
	if accessToken == "" {
		return Token{}, fmt.Errorf("response missing access_token")
	}

	exp, err := parseExpiresOn(expiresOn)
	if err != nil {
		return Token{}, err
	}

	return Token{AccessToken: accessToken, ExpiresOn: exp}, nil
}

// parseExpiresOn parses expires_on, which is sent as seconds since the epoch,
// either as a JSON string or a number.
func parseExpiresOn(v any) (time.Time, error) {
	var s string

	switch e := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("response missing expires_on")
	case string:
		s = strings.TrimSpace(e)
	case json.Number:
		s = e.String()
	case float64:
		return time.Unix(int64(e), 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid expires_on type %T", v)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expires_on %q: %w", s, err)
	}

	return time.Unix(n, 0), nil
}
