// Package fakeazure provides test servers emulating the Azure instance
// metadata service and the Microsoft Entra ID token endpoint.
package fakeazure

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync"
	"testing"

	"github.com/hairyhenderson/go-azkvauth/httpclient"
	"github.com/stretchr/testify/assert"
)

// Request summarizes a request received by a Server.
type Request struct {
	Header http.Header
	Query  url.Values
	Form   url.Values
	Method string
	// Host is the host the client addressed, before being rerouted to the
	// test server
	Host string
	Path string
}

// Server is an httptest server that records every request it receives.
type Server struct {
	srv  *httptest.Server
	reqs []Request
	mu   sync.Mutex
}

// NewServer starts a recording server in front of handler. It is closed when
// the test ends.
func NewServer(t *testing.T, handler http.Handler) *Server {
	t.Helper()

	s := &Server{}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.record(t, r)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *Server) record(t *testing.T, r *http.Request) {
	rec := Request{
		Method: r.Method,
		Host:   r.Host,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	}

	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(b))

		if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
			rec.Form, err = url.ParseQuery(string(b))
			assert.NoError(t, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reqs = append(s.reqs, rec)
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.reqs))
	copy(out, s.reqs)

	return out
}

// Transport returns a RoundTripper which sends every request to this server,
// whatever its URL, keeping the original Host header.
func (s *Server) Transport() http.RoundTripper {
	target, _ := url.Parse(s.srv.URL)

	return &rerouteTransport{target: target, base: s.srv.Client().Transport}
}

// ClientFactory returns a factory whose clients all talk to this server.
func (s *Server) ClientFactory(opts ...httpclient.Option) httpclient.Factory {
	return httpclient.NewFactory(append(slices.Clone(opts), httpclient.WithTransport(s.Transport()))...)
}

type rerouteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (rt *rerouteTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r2 := r.Clone(r.Context())
	r2.Host = r.URL.Host
	r2.URL.Scheme = rt.target.Scheme
	r2.URL.Host = rt.target.Host

	return rt.base.RoundTrip(r2)
}

// WriteToken writes a token response in the format used by both the IMDS and
// the token endpoint.
func WriteToken(w http.ResponseWriter, token, expiresOn string) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(map[string]string{
		"access_token": token,
		"expires_on":   expiresOn,
		"token_type":   "Bearer",
	})
}

// IMDS returns a handler emulating the instance metadata service, issuing the
// given token for any resource. Like the real service, requests without the
// `Metadata: true` header are rejected.
func IMDS(token, expiresOn string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /metadata", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("compute/\nnetwork/\n"))
	})

	mux.HandleFunc("GET /metadata/identity/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("resource") == "" {
			http.Error(w, `{"error":"invalid_request","error_description":"Required query variable 'resource' is missing"}`,
				http.StatusBadRequest)

			return
		}

		WriteToken(w, token, expiresOn)
	})

	return requireMetadataHeader(mux)
}

func requireMetadataHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Metadata") != "true" {
			http.Error(w, `{"error":"Bad request. Required metadata header not specified"}`, http.StatusBadRequest)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// Credentials are the service principal credentials accepted by Authority.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Authority returns a handler emulating the Entra ID (v1) token endpoint. The
// client-credentials grant succeeds only for the given credentials.
func Authority(creds Credentials, token, expiresOn string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /{tenant}/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		switch {
		case r.PathValue("tenant") != creds.TenantID:
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "tenant not found")
		case r.PostForm.Get("grant_type") != "client_credentials":
			writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
		case r.PostForm.Get("client_id") != creds.ClientID ||
			r.PostForm.Get("client_secret") != creds.ClientSecret:
			writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "invalid client secret")
		case r.PostForm.Get("resource") == "":
			writeOAuthError(w, http.StatusBadRequest, "invalid_resource", "resource is required")
		default:
			WriteToken(w, token, expiresOn)
		}
	})

	return mux
}

func writeOAuthError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": desc,
	})
}

// ByHost routes requests to a handler by the requested host name (port
// excluded). Unknown hosts get a 404.
func ByHost(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		h, ok := handlers[host]
		if !ok {
			http.NotFound(w, r)

			return
		}

		h.ServeHTTP(w, r)
	})
}
