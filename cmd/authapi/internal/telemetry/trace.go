package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan creates a new span for a service operation.
// Without a registered tracer provider the global noop tracer is used.
//
// Usage:
//
//	ctx, span := telemetry.StartSpan(ctx, "authapi/grant", "grant.Password",
//	    attribute.String(telemetry.AttrGrantType, "password"),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
//
// Example:
//
//	telemetry.AddEvent(span, "grant.rejected",
//	    attribute.String(telemetry.AttrGrantReason, "locked_out"),
//	)
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys
const (
	// Grant attributes
	AttrGrantType   = "grant.type"
	AttrGrantReason = "grant.reason"
	AttrClientID    = "grant.client_id"

	// Principal attributes
	AttrPrincipalSubject = "principal.subject"
	AttrPrincipalKind    = "principal.kind"
	AttrPrincipalRoles   = "principal.roles"

	// Policy attributes
	AttrPolicyName     = "policy.name"
	AttrPolicyResource = "policy.resource"
	AttrPolicyAllowed  = "policy.allowed"
)
