// Package httpclient provides the small HTTP client used by go-azkvauth's
// authenticators to talk to the Azure instance metadata service and the
// Microsoft Entra ID token endpoint.
//
// A [Factory] creates a [*Client] bound to a base URL. Clients issue requests
// relative to that URL and return a fully-read [*Response], so callers only
// need to deal with a status code and a body.
//
// The default factory ([NewFactory]) builds clients on top of
// [github.com/hashicorp/go-cleanhttp] pooled clients. Retries are off by
// default; [WithRetryMax] enables them through
// [github.com/hashicorp/go-retryablehttp].
//
// Tests can inject a handler with [WithTransport], or supply their own
// [Factory] (see [FactoryFunc]).
package httpclient
