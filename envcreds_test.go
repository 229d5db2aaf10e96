package azkvauth

import (
	"net/http"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/hairyhenderson/go-azkvauth/internal/env"
	"github.com/hairyhenderson/go-azkvauth/internal/tests/fakeazure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientCredentialsEnvironmentAuthenticator(t *testing.T) {
	testdata := []struct {
		vars    map[string]string
		missing string
	}{
		{nil, EnvTenantID},
		{map[string]string{EnvTenantID: ""}, EnvTenantID},
		{map[string]string{EnvTenantID: "t"}, EnvClientID},
		{map[string]string{EnvTenantID: "t", EnvClientID: "c"}, EnvClientSecret},
		{map[string]string{EnvClientID: "c", EnvClientSecret: "s"}, EnvTenantID},
	}

	for _, d := range testdata {
		_, err := NewClientCredentialsEnvironmentAuthenticator(nil, testResource,
			WithGetenv(env.Map(d.vars, nil)))
		require.Error(t, err)

		var nerr *NotUsableError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, `environment variable "`+d.missing+`" is not set`, err.Error())
	}

	a, err := NewClientCredentialsEnvironmentAuthenticator(nil, testResource, WithGetenv(credsEnv()))
	require.NoError(t, err)
	assert.Equal(t, "tenant", a.tenantID)
	assert.Equal(t, "client", a.clientID)
	assert.Equal(t, "secret", a.clientSecret)
	assert.Equal(t, DefaultAuthorityHost, a.client.BaseURL().String())
	require.NoError(t, a.Probe(t.Context()))
}

func TestNewClientCredentialsEnvironmentAuthenticator_FromFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"run/secrets/client-secret": &fstest.MapFile{Data: []byte("from-file\n")},
	}

	getenv := env.Map(map[string]string{
		EnvTenantID:               "tenant",
		EnvClientID:               "client",
		EnvClientSecret + "_FILE": "/run/secrets/client-secret",
	}, fsys)

	a, err := NewClientCredentialsEnvironmentAuthenticator(nil, testResource, WithGetenv(getenv))
	require.NoError(t, err)
	assert.Equal(t, "from-file", a.clientSecret)
}

func TestNewClientCredentialsEnvironmentAuthenticator_AuthorityHost(t *testing.T) {
	getenv := env.Map(map[string]string{
		EnvTenantID:      "tenant",
		EnvClientID:      "client",
		EnvClientSecret:  "secret",
		EnvAuthorityHost: "https://login.microsoftonline.us",
	}, nil)

	a, err := NewClientCredentialsEnvironmentAuthenticator(nil, testResource, WithGetenv(getenv))
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.us", a.client.BaseURL().String())

	a, err = NewClientCredentialsEnvironmentAuthenticator(nil, testResource,
		WithGetenv(getenv), WithAuthorityHost("https://login.chinacloudapi.cn"))
	require.NoError(t, err)
	assert.Equal(t, "https://login.chinacloudapi.cn", a.client.BaseURL().String())

	// a bad host is a construction error
	_, err = NewClientCredentialsEnvironmentAuthenticator(nil, testResource,
		WithGetenv(getenv), WithAuthorityHost("ldap://example.com"))
	require.Error(t, err)
}

func TestClientCredentialsAuthenticate(t *testing.T) {
	srv := fakeazure.NewServer(t, fakeazure.Authority(testCreds, "abc", "1999999999"))

	a, err := NewClientCredentialsEnvironmentAuthenticator(srv.ClientFactory(), testResource,
		WithGetenv(credsEnv()))
	require.NoError(t, err)

	tok, err := a.Authenticate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, time.Unix(1999999999, 0), tok.ExpiresOn)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, loginHost, req.Host)
	assert.Equal(t, "/tenant/oauth2/token", req.Path)
	assert.Equal(t, "client_credentials", req.Form.Get("grant_type"))
	assert.Equal(t, "client", req.Form.Get("client_id"))
	assert.Equal(t, "secret", req.Form.Get("client_secret"))
	assert.Equal(t, testResource, req.Form.Get("resource"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestClientCredentialsAuthenticate_Rejected(t *testing.T) {
	creds := testCreds
	creds.ClientSecret = "other"

	srv := fakeazure.NewServer(t, fakeazure.Authority(creds, "abc", "1999999999"))

	a, err := NewClientCredentialsEnvironmentAuthenticator(srv.ClientFactory(), testResource,
		WithGetenv(credsEnv()))
	require.NoError(t, err)

	_, err = a.Authenticate(t.Context())
	require.Error(t, err)

	var aerr *AuthenticationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusUnauthorized, aerr.StatusCode)
	assert.Equal(t, http.MethodPost, aerr.Method)
	assert.Equal(t, "https://login.microsoftonline.com/tenant/oauth2/token", aerr.URL)
	assert.Contains(t, aerr.Body, "invalid_client")
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid_client: invalid client secret")

	// exactly one attempt
	assert.Len(t, srv.Requests(), 1)
}

func TestClientCredentialsAuthenticate_Malformed(t *testing.T) {
	testdata := []struct {
		contentType string
		body        string
		status      int
		errContains string
	}{
		{"application/json", `{"access_token":"abc"}`, http.StatusOK, "missing expires_on"},
		{"application/json", `{"access_token":"abc","expires_on":"soon"}`, http.StatusOK, `invalid expires_on "soon"`},
		{"application/json", `{"expires_on":"1999999999"}`, http.StatusOK, "missing access_token"},
		{"application/json", `not json`, http.StatusOK, "cannot parse json"},
		{"text/plain", strings.Repeat("x", 1000), http.StatusInternalServerError, "500"},
	}

	for _, d := range testdata {
		srv := fakeazure.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", d.contentType)
			w.WriteHeader(d.status)
			_, _ = w.Write([]byte(d.body))
		}))

		a, err := NewClientCredentialsEnvironmentAuthenticator(srv.ClientFactory(), testResource,
			WithGetenv(credsEnv()))
		require.NoError(t, err)

		tok, err := a.Authenticate(t.Context())
		require.Error(t, err, d.body)
		assert.Empty(t, tok.AccessToken)

		var aerr *AuthenticationError
		require.ErrorAs(t, err, &aerr)
		assert.Contains(t, err.Error(), d.errContains)
		assert.LessOrEqual(t, len(aerr.Body), maxErrorBody+3)
	}
}
