package azkvauth

import (
	"net/http"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/hairyhenderson/go-azkvauth/internal/tests/fakeazure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCredential(t *testing.T) {
	srv := fakeazure.NewServer(t, fakeazure.IMDS("tok", "1999999999"))

	a, err := NewManagedCredentialsAuthenticator(srv.ClientFactory(), testResource)
	require.NoError(t, err)

	cred := NewTokenCredential(a)

	tok, err := cred.GetToken(t.Context(), policy.TokenRequestOptions{
		Scopes: []string{"https://vault.azure.net/.default"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.Token)
	assert.Equal(t, time.Unix(1999999999, 0), tok.ExpiresOn)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, testResource, reqs[0].Query.Get("resource"))
}

func TestTokenCredential_Error(t *testing.T) {
	srv := fakeazure.NewServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	a, err := NewManagedCredentialsAuthenticator(srv.ClientFactory(), testResource)
	require.NoError(t, err)

	_, err = NewTokenCredential(a).GetToken(t.Context(), policy.TokenRequestOptions{})

	var aerr *AuthenticationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusForbidden, aerr.StatusCode)
}
