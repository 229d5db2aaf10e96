package azkvauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hairyhenderson/go-azkvauth/httpclient"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Environment variables read by ClientCredentialsEnvironmentAuthenticator
const (
	EnvTenantID      = "AZURE_TENANT_ID"
	EnvClientID      = "AZURE_CLIENT_ID"
	EnvClientSecret  = "AZURE_CLIENT_SECRET"
	EnvAuthorityHost = "AZURE_AUTHORITY_HOST"
)

// DefaultAuthorityHost is the Microsoft Entra ID login host for the public
// Azure cloud.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// ClientCredentialsEnvironmentName is the Name of
// ClientCredentialsEnvironmentAuthenticator.
const ClientCredentialsEnvironmentName = "ClientCredentialsEnvironmentAuthenticator"

// ClientCredentialsEnvironmentAuthenticator authenticates with a service
// principal's client ID and secret, using the OAuth2 client-credentials
// grant. Credentials are read from $AZURE_TENANT_ID, $AZURE_CLIENT_ID and
// $AZURE_CLIENT_SECRET when the authenticator is created.
type ClientCredentialsEnvironmentAuthenticator struct {
	client       *httpclient.Client
	logger       *slog.Logger
	tracer       trace.Tracer
	resource     string
	tenantID     string
	clientID     string
	clientSecret string
}

// NewClientCredentialsEnvironmentAuthenticator creates an authenticator for
// resource (e.g. "https://vault.azure.net"). A *NotUsableError is returned if
// any of the required environment variables is missing or empty.
//
// If clients is nil, [httpclient.NewFactory] is used.
func NewClientCredentialsEnvironmentAuthenticator(clients httpclient.Factory, resource string, opts ...Option) (*ClientCredentialsEnvironmentAuthenticator, error) {
	cfg := newConfig(opts)

	vals := make(map[string]string, 3)

	for _, key := range []string{EnvTenantID, EnvClientID, EnvClientSecret} {
		v := cfg.getenv(key)
		if v == "" {
			return nil, notUsable("environment variable %q is not set", key)
		}

		vals[key] = v
	}

	authority := cfg.authorityHost
	if authority == "" {
		authority = cfg.getenv(EnvAuthorityHost)
	}

	if authority == "" {
		authority = DefaultAuthorityHost
	}

	if clients == nil {
		clients = httpclient.NewFactory()
	}

	client, err := clients.Client(authority, cfg.clientOpts()...)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", authority, err)
	}

	return &ClientCredentialsEnvironmentAuthenticator{
		client:       client,
		logger:       cfg.logger,
		tracer:       cfg.tracer(),
		resource:     resource,
		tenantID:     vals[EnvTenantID],
		clientID:     vals[EnvClientID],
		clientSecret: vals[EnvClientSecret],
	}, nil
}

func (a *ClientCredentialsEnvironmentAuthenticator) authenticator() {}

// Name - implements Authenticator
func (a *ClientCredentialsEnvironmentAuthenticator) Name() string {
	return ClientCredentialsEnvironmentName
}

// Probe - implements Authenticator. The credentials were already validated on
// creation, so no request is made.
func (a *ClientCredentialsEnvironmentAuthenticator) Probe(_ context.Context) error {
	return nil
}

// Authenticate - implements Authenticator
func (a *ClientCredentialsEnvironmentAuthenticator) Authenticate(ctx context.Context) (Token, error) {
	ctx, span := a.tracer.Start(ctx, "azkvauth.Authenticate", spanAttribs(a.Name(), a.resource))
	defer span.End()

	tokenURL, err := a.client.URL("/"+url.PathEscape(a.tenantID)+"/oauth2/token", nil)
	if err != nil {
		return Token{}, recordError(span, &AuthenticationError{Err: err})
	}

	cc := &clientcredentials.Config{
		ClientID:       a.clientID,
		ClientSecret:   a.clientSecret,
		TokenURL:       tokenURL.String(),
		EndpointParams: url.Values{"resource": {a.resource}},
		// params only, so a failed attempt isn't retried with basic auth
		AuthStyle: oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client.HTTPClient())

	tok, err := cc.Token(ctx)
	if err != nil {
		return Token{}, recordError(span, convertOAuth2Error(tokenURL.String(), err))
	}

	t, err := newToken(tok.AccessToken, tok.Extra("expires_on"))
	if err != nil {
		return Token{}, recordError(span, &AuthenticationError{
			Method: http.MethodPost,
			URL:    tokenURL.String(),
			Err:    err,
		})
	}

	a.logger.DebugContext(ctx, "acquired token",
		slog.String("authenticator", a.Name()),
		slog.Time("expires_on", t.ExpiresOn))

	return t, nil
}

// convertOAuth2Error converts an error from the oauth2 package to an
// *AuthenticationError, so oauth2 types don't leak from this package.
func convertOAuth2Error(tokenURL string, err error) error {
	aerr := &AuthenticationError{Method: http.MethodPost, URL: tokenURL}

	rerr := &oauth2.RetrieveError{}
	if !errors.As(err, &rerr) {
		aerr.Err = err

		return aerr
	}

	if rerr.Response != nil {
		aerr.StatusCode = rerr.Response.StatusCode
	}

	aerr.Body = truncateBody(rerr.Body)

	if rerr.ErrorCode != "" {
		aerr.Err = fmt.Errorf("%s: %s", rerr.ErrorCode, rerr.ErrorDescription)
	}

	return aerr
}
