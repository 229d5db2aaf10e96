package httpclient

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option interface {
	apply(*config)
}

type config struct {
	transport http.RoundTripper
	header    http.Header
	logger    *slog.Logger
	timeout   time.Duration
	retryMax  int
}

type optionFunc func(*config)

func (o optionFunc) apply(c *config) {
	o(c)
}

// WithTimeout sets the overall timeout for each request made by the client.
// Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	})
}

// WithTransport overrides the client's transport. This is mainly useful for
// tests, which can route all requests to an httptest server regardless of the
// client's base URL.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *config) {
		if rt != nil {
			c.transport = rt
		}
	})
}

// WithHeader adds headers that will be sent with every request. Headers given
// per-request are added after these.
func WithHeader(headers http.Header) Option {
	return optionFunc(func(c *config) {
		for k, vs := range headers {
			for _, v := range vs {
				c.header.Add(k, v)
			}
		}
	})
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

// WithRetryMax enables retries of failed requests (connection errors and 5xx
// responses), up to n times. Retries are disabled by default.
func WithRetryMax(n int) Option {
	return optionFunc(func(c *config) {
		if n >= 0 {
			c.retryMax = n
		}
	})
}
