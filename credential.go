package azkvauth

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// NewTokenCredential adapts auth to an [azcore.TokenCredential], so a selected
// authenticator can be given to Azure SDK clients.
//
// The scopes in the token request are ignored: tokens are always issued for
// the resource auth was created for. Tokens aren't cached here, but Azure SDK
// clients cache them in their bearer token policy.
func NewTokenCredential(auth Authenticator) azcore.TokenCredential {
	return &tokenCredential{auth: auth}
}

type tokenCredential struct {
	auth Authenticator
}

func (c *tokenCredential) GetToken(ctx context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.auth.Authenticate(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}

	return azcore.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.ExpiresOn}, nil
}
