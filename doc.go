// Package azkvauth selects and runs an authentication method for the Azure
// Key Vault HTTP API.
//
// Two methods are supported, tried in this order of precedence by
// [AuthenticatorFactory]:
//
// # Client credentials from the environment
//
// [ClientCredentialsEnvironmentAuthenticator] reads $AZURE_TENANT_ID,
// $AZURE_CLIENT_ID and $AZURE_CLIENT_SECRET, and exchanges them for a token
// with the OAuth2 client-credentials grant. The login host defaults to
// https://login.microsoftonline.com and can be overridden with
// $AZURE_AUTHORITY_HOST. Each variable can alternatively be given as a file
// path in the same variable suffixed with `_FILE`.
//
// # Managed identity
//
// [ManagedCredentialsAuthenticator] requests a token from the instance
// metadata service (IMDS) at http://169.254.169.254. It is only selected when
// the metadata service answers a short reachability probe.
//
// # Usage
//
//	auth, err := azkvauth.GetAuthenticator(ctx, httpclient.NewFactory(), "https://vault.azure.net",
//		azkvauth.WithLogger(slog.Default()))
//	if err != nil {
//		return err
//	}
//
//	token, err := auth.Authenticate(ctx)
//
// Selection is re-done from scratch on every call, and nothing is cached, so
// callers that want to reuse a selected authenticator should hold on to it.
// Use [NewTokenCredential] to hand an authenticator to Azure SDK clients.
package azkvauth
