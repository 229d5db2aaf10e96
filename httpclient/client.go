package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// maxBodySize limits how much of a response body is read
const maxBodySize = 1 << 20

// Factory creates clients bound to a base URL.
type Factory interface {
	// Client returns a client which resolves request paths against baseURL.
	Client(baseURL string, opts ...Option) (*Client, error)
}

// FactoryFunc adapts an ordinary function to a Factory.
type FactoryFunc func(baseURL string, opts ...Option) (*Client, error)

// Client - implements Factory
func (f FactoryFunc) Client(baseURL string, opts ...Option) (*Client, error) {
	return f(baseURL, opts...)
}

// NewFactory returns a Factory creating clients with New. The given defaults
// are applied to every client before any per-client options.
func NewFactory(defaults ...Option) Factory {
	return FactoryFunc(func(baseURL string, opts ...Option) (*Client, error) {
		all := append(slices.Clone(defaults), opts...)

		return New(baseURL, all...)
	})
}

// Client issues requests relative to a base URL.
type Client struct {
	base   *url.URL
	hc     *http.Client
	header http.Header
	logger *slog.Logger
}

// New creates a client for the given http or https base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q", base.Scheme)
	}

	cfg := config{
		header:  http.Header{},
		timeout: DefaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt.apply(&cfg)
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = cfg.timeout

	if cfg.transport != nil {
		hc.Transport = cfg.transport
	}

	if cfg.retryMax > 0 {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = hc
		rc.RetryMax = cfg.retryMax
		rc.Logger = cfg.logger

		hc = rc.StandardClient()
	}

	return &Client{
		base:   base,
		hc:     hc,
		header: cfg.header,
		logger: cfg.logger,
	}, nil
}

// BaseURL returns a copy of the client's base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base

	return &u
}

// HTTPClient returns the underlying *http.Client, for use with libraries
// that need one directly.
func (c *Client) HTTPClient() *http.Client {
	return c.hc
}

// URL resolves p against the client's base URL, merging in the base URL's
// query parameters, then the ones given in query.
func (c *Client) URL(p string, query url.Values) (*url.URL, error) {
	u, err := subURL(c.base, p)
	if err != nil {
		return nil, err
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = vs
		}

		u.RawQuery = q.Encode()
	}

	return u, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, p string, query url.Values, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, p, query, header, nil)
}

// PostForm issues a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, p string, form url.Values, header http.Header) (*Response, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}

	h.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.Do(ctx, http.MethodPost, p, nil, h, strings.NewReader(form.Encode()))
}

// Do issues a request and reads the whole response body (up to 1MiB). An
// error is returned only when no response was received; non-2xx statuses
// are reported through the Response.
func (c *Client) Do(ctx context.Context, method, p string, query url.Values, header http.Header, body io.Reader) (*Response, error) {
	u, err := c.URL(p, query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.logger.DebugContext(ctx, "http request",
		slog.String("method", method),
		slog.String("url", redact(u)),
		slog.Int("status", resp.StatusCode))

	return &Response{
		Method:     method,
		URL:        redact(u),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       b,
	}, nil
}

// Response is a fully-read HTTP response.
type Response struct {
	Header     http.Header
	Method     string
	URL        string
	Body       []byte
	StatusCode int
}

// IsSuccess reports whether the response has a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Body))

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.Method, r.URL, err)
	}

	return nil
}

func subURL(base *url.URL, name string) (*url.URL, error) {
	rel, err := url.Parse(name)
	if err != nil {
		return nil, err
	}

	u := base.ResolveReference(rel)

	// also merge query params
	if base.RawQuery != "" {
		bq := base.Query()
		rq := rel.Query()

		for k := range rq {
			bq.Set(k, rq.Get(k))
		}

		u.RawQuery = bq.Encode()
	}

	return u, nil
}

// redact strips the query string, which may carry credentials or resource
// identifiers, from u for logging.
func redact(u *url.URL) string {
	r := *u
	r.RawQuery = ""
	r.User = nil

	return r.String()
}
