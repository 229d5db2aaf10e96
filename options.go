package azkvauth

import (
	"log/slog"
	"time"

	"github.com/hairyhenderson/go-azkvauth/httpclient"
	"github.com/hairyhenderson/go-azkvauth/internal/env"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Option configures authenticators and the AuthenticatorFactory.
type Option interface {
	apply(*config)
}

type config struct {
	logger           *slog.Logger
	getenv           env.Lookup
	tp               trace.TracerProvider
	metadataEndpoint string
	authorityHost    string
	managedClientID  string
	probeTimeout     time.Duration
	// loggerSet is true when the logger came from WithLogger
	loggerSet bool
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

func newConfig(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	cfg.loggerSet = cfg.logger != nil
	if !cfg.loggerSet {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	if cfg.getenv == nil {
		cfg.getenv = env.Getenv
	}

	if cfg.tp == nil {
		cfg.tp = otel.GetTracerProvider()
	}

	if cfg.metadataEndpoint == "" {
		cfg.metadataEndpoint = DefaultMetadataEndpoint
	}

	if cfg.probeTimeout <= 0 {
		cfg.probeTimeout = DefaultProbeTimeout
	}

	return cfg
}

func (c config) tracer() trace.Tracer {
	return c.tp.Tracer(tracerName)
}

// clientOpts returns the options for the authenticator's HTTP client. The
// logger is only passed on when one was given, so a logger set on the
// httpclient.Factory isn't replaced.
func (c config) clientOpts(opts ...httpclient.Option) []httpclient.Option {
	if c.loggerSet {
		opts = append(opts, httpclient.WithLogger(c.logger))
	}

	return opts
}

// WithLogger sets the logger used for diagnostics. Only debug-level messages
// are logged. By default nothing is logged. The logger is also given to the
// HTTP clients, overriding any logger set on the httpclient.Factory.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithGetenv overrides how environment variables are read. By default the
// process environment is used, with support for `_FILE`-suffixed variables.
func WithGetenv(getenv func(key string) string) Option {
	return optionFunc(func(c *config) {
		if getenv != nil {
			c.getenv = getenv
		}
	})
}

// WithTracerProvider specifies a tracer provider to use for creating a tracer.
// If none is specified, the global provider is used (see [otel.GetTracerProvider]).
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(c *config) {
		if provider != nil {
			c.tp = provider
		}
	})
}

// WithMetadataEndpoint overrides the base URL of the instance metadata
// service (default [DefaultMetadataEndpoint]).
func WithMetadataEndpoint(endpoint string) Option {
	return optionFunc(func(c *config) {
		c.metadataEndpoint = endpoint
	})
}

// WithAuthorityHost overrides the login host used for the client-credentials
// flow. It takes precedence over $AZURE_AUTHORITY_HOST.
func WithAuthorityHost(host string) Option {
	return optionFunc(func(c *config) {
		c.authorityHost = host
	})
}

// WithProbeTimeout sets how long the metadata service reachability probe may
// take (default [DefaultProbeTimeout]).
func WithProbeTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.probeTimeout = d
	})
}

// WithManagedIdentityClientID selects a user-assigned managed identity by its
// client ID. When unset, the system-assigned identity is used.
func WithManagedIdentityClientID(clientID string) Option {
	return optionFunc(func(c *config) {
		c.managedClientID = clientID
	})
}
