package azkvauth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hairyhenderson/go-azkvauth/httpclient"
	"go.opentelemetry.io/otel/trace"
)

type candidate struct {
	newFunc func(clients httpclient.Factory, resource string, opts ...Option) (Authenticator, error)
	name    string
}

// candidates returns the supported authenticators, sorted in order of
// precedence. Explicit configuration wins over the ambient platform identity.
func candidates() []candidate {
	return []candidate{
		{
			name: ClientCredentialsEnvironmentName,
			newFunc: func(clients httpclient.Factory, resource string, opts ...Option) (Authenticator, error) {
				a, err := NewClientCredentialsEnvironmentAuthenticator(clients, resource, opts...)
				if err != nil {
					return nil, err
				}

				return a, nil
			},
		},
		{
			name: ManagedCredentialsName,
			newFunc: func(clients httpclient.Factory, resource string, opts ...Option) (Authenticator, error) {
				a, err := NewManagedCredentialsAuthenticator(clients, resource, opts...)
				if err != nil {
					return nil, err
				}

				return a, nil
			},
		},
	}
}

// AuthenticatorFactory chooses the first usable authenticator, in this order
// of precedence:
//
//	ClientCredentialsEnvironmentAuthenticator
//	ManagedCredentialsAuthenticator
//
// The factory holds no state besides its options, and can be used
// concurrently.
type AuthenticatorFactory struct {
	opts []Option
}

// NewAuthenticatorFactory returns a factory which creates authenticators with
// the given options.
func NewAuthenticatorFactory(opts ...Option) *AuthenticatorFactory {
	return &AuthenticatorFactory{opts: opts}
}

// GetAuthenticator creates and probes each authenticator in order of
// precedence, returning the first one that's usable. Later authenticators are
// not created or probed once one has been chosen.
//
// If no authenticator is usable, a *SelectionExhaustedError is returned,
// matching ErrNoSuitableAuthenticator. Reasons for skipping each
// authenticator are logged at debug level.
func (f *AuthenticatorFactory) GetAuthenticator(ctx context.Context, clients httpclient.Factory, resource string) (Authenticator, error) {
	cfg := newConfig(f.opts)
	tracer := cfg.tracer()

	ctx, span := tracer.Start(ctx, "azkvauth.GetAuthenticator", trace.WithAttributes(resourceKey.String(resource)))
	defer span.End()

	if clients == nil {
		clients = httpclient.NewFactory()
	}

	cands := candidates()
	failures := make([]ProbeFailure, 0, len(cands))

	for _, c := range cands {
		a, err := f.probe(ctx, tracer, c, clients, resource)
		if err == nil {
			cfg.logger.DebugContext(ctx, c.name+" selected", slog.String("authenticator", c.name))
			span.SetAttributes(authenticatorKey.String(c.name))

			return a, nil
		}

		cfg.logger.DebugContext(ctx, fmt.Sprintf("%s is not usable: %v", c.name, err),
			slog.String("authenticator", c.name))

		failures = append(failures, ProbeFailure{Authenticator: c.name, Reason: err.Error()})
	}

	return nil, recordError(span, &SelectionExhaustedError{Failures: failures})
}

func (f *AuthenticatorFactory) probe(ctx context.Context, tracer trace.Tracer, c candidate, clients httpclient.Factory, resource string) (Authenticator, error) {
	ctx, span := tracer.Start(ctx, "azkvauth.Probe", spanAttribs(c.name, resource))
	defer span.End()

	a, err := c.newFunc(clients, resource, f.opts...)
	if err != nil {
		return nil, recordError(span, err)
	}

	if err := a.Probe(ctx); err != nil {
		return nil, recordError(span, err)
	}

	return a, nil
}

// GetAuthenticator is a shortcut for
// NewAuthenticatorFactory(opts...).GetAuthenticator(ctx, clients, resource).
func GetAuthenticator(ctx context.Context, clients httpclient.Factory, resource string, opts ...Option) (Authenticator, error) {
	return NewAuthenticatorFactory(opts...).GetAuthenticator(ctx, clients, resource)
}
