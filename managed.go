package azkvauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hairyhenderson/go-azkvauth/httpclient"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultMetadataEndpoint is the base URL of the Azure instance metadata
	// service.
	DefaultMetadataEndpoint = "http://169.254.169.254"

	// MetadataAPIVersion is the IMDS API version used for all requests.
	MetadataAPIVersion = "2019-11-01"

	// DefaultProbeTimeout bounds the metadata service reachability probe.
	DefaultProbeTimeout = 2 * time.Second

	metadataProbePath = "/metadata"
	metadataTokenPath = "/metadata/identity/oauth2/token"
)

// ManagedCredentialsName is the Name of ManagedCredentialsAuthenticator.
const ManagedCredentialsName = "ManagedCredentialsAuthenticator"

// ManagedCredentialsAuthenticator authenticates with the managed identity
// of the Azure resource (VM, App Service, container...) the process runs on,
// by requesting tokens from the instance metadata service.
type ManagedCredentialsAuthenticator struct {
	client       *httpclient.Client
	logger       *slog.Logger
	tracer       trace.Tracer
	resource     string
	clientID     string
	probeTimeout time.Duration
}

// NewManagedCredentialsAuthenticator creates an authenticator for resource
// (e.g. "https://vault.azure.net"). No requests are made until Probe or
// Authenticate is called.
//
// If clients is nil, [httpclient.NewFactory] is used.
func NewManagedCredentialsAuthenticator(clients httpclient.Factory, resource string, opts ...Option) (*ManagedCredentialsAuthenticator, error) {
	cfg := newConfig(opts)

	if clients == nil {
		clients = httpclient.NewFactory()
	}

	client, err := clients.Client(cfg.metadataEndpoint,
		cfg.clientOpts(httpclient.WithHeader(http.Header{"Metadata": {"true"}}))...)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", cfg.metadataEndpoint, err)
	}

	return &ManagedCredentialsAuthenticator{
		client:       client,
		logger:       cfg.logger,
		tracer:       cfg.tracer(),
		resource:     resource,
		clientID:     cfg.managedClientID,
		probeTimeout: cfg.probeTimeout,
	}, nil
}

func (a *ManagedCredentialsAuthenticator) authenticator() {}

// Name - implements Authenticator
func (a *ManagedCredentialsAuthenticator) Name() string {
	return ManagedCredentialsName
}

// Probe - implements Authenticator. A single request is made to the metadata
// service to check that it's reachable; the response body is ignored.
func (a *ManagedCredentialsAuthenticator) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	query := url.Values{
		"api-version": {MetadataAPIVersion},
		"format":      {"text"},
	}

	resp, err := a.client.Get(ctx, metadataProbePath, query, nil)
	if err != nil {
		return notUsable("instance metadata service not available: %w", err)
	}

	if !resp.IsSuccess() {
		return notUsable("instance metadata service not available: %s %s - %d",
			resp.Method, resp.URL, resp.StatusCode)
	}

	return nil
}

// Authenticate - implements Authenticator
func (a *ManagedCredentialsAuthenticator) Authenticate(ctx context.Context) (Token, error) {
	ctx, span := a.tracer.Start(ctx, "azkvauth.Authenticate", spanAttribs(a.Name(), a.resource))
	defer span.End()

	query := url.Values{
		"api-version": {MetadataAPIVersion},
		"resource":    {a.resource},
	}

	if a.clientID != "" {
		query.Set("client_id", a.clientID)
	}

	resp, err := a.client.Get(ctx, metadataTokenPath, query, nil)
	if err != nil {
		return Token{}, recordError(span, &AuthenticationError{
			Method: http.MethodGet,
			URL:    a.client.BaseURL().JoinPath(metadataTokenPath).String(),
			Err:    err,
		})
	}

	aerr := &AuthenticationError{
		Method:     resp.Method,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Body:       truncateBody(resp.Body),
	}

	if !resp.IsSuccess() {
		return Token{}, recordError(span, aerr)
	}

	var tr tokenResponse
	if err := resp.DecodeJSON(&tr); err != nil {
		aerr.Err = err

		return Token{}, recordError(span, aerr)
	}

	t, err := tr.token()
	if err != nil {
		aerr.Err = err

		return Token{}, recordError(span, aerr)
	}

	a.logger.DebugContext(ctx, "acquired token",
		slog.String("authenticator", a.Name()),
		slog.Time("expires_on", t.ExpiresOn))

	return t, nil
}
