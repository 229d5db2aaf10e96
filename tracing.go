package azkvauth

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-azkvauth"

const (
	authenticatorKey = attribute.Key("azkvauth.authenticator")
	resourceKey      = attribute.Key("azkvauth.resource")
)

func spanAttribs(name, resource string) trace.SpanStartEventOption {
	return trace.WithAttributes(authenticatorKey.String(name), resourceKey.String(resource))
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}
