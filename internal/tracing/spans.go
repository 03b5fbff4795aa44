package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute key constants for consistent span attributes.
const (
	AttrInvocationID = "stdf.invocation_id"
	AttrRecords      = "stdf.records"
	AttrPublished    = "stdf.published"
	AttrEventID      = "stdf.event_id"
	AttrLogGroup     = "aws.cloudwatch.log_group"
	AttrTopic        = "messaging.destination.name"
	AttrSystem       = "messaging.system"
	AttrHTTPTarget   = "http.target"
	AttrHTTPStatus   = "http.status_code"
	AttrErrorType    = "error.type"
)

// Span name constants for consistent span naming.
const (
	SpanInvocation    = "stdf.invocation"
	SpanDecode        = "stdf.decode"
	SpanPublish       = "stdf.publish"
	SpanTransportSend = "transport.send"
)

// StartSpan starts a new span with the given name and options.
// Returns the new context with the span and the span itself.
// If tracer is nil, returns a no-op span.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// SetSpanError records an error on the span and sets the status to Error.
func SetSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOK sets the span status to Ok.
func SetSpanOK(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// InvocationAttr returns an attribute for the invocation ID.
func InvocationAttr(id string) attribute.KeyValue {
	return attribute.String(AttrInvocationID, id)
}

// RecordsAttr returns an attribute for the number of decoded records.
func RecordsAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrRecords, n)
}

// PublishedAttr returns an attribute for the number of published envelopes.
func PublishedAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrPublished, n)
}

func EventIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrEventID, id)
}

func LogGroupAttr(group string) attribute.KeyValue {
	return attribute.String(AttrLogGroup, group)
}

// TopicAttr returns an attribute for the destination topic.
func TopicAttr(topic string) attribute.KeyValue {
	return attribute.String(AttrTopic, topic)
}

// SystemAttr names the messaging system behind a transport (sns, kafka, ...).
func SystemAttr(system string) attribute.KeyValue {
	return attribute.String(AttrSystem, system)
}

// HTTPTargetAttr returns an attribute for the HTTP target URL.
func HTTPTargetAttr(url string) attribute.KeyValue {
	return attribute.String(AttrHTTPTarget, url)
}

// HTTPStatusAttr returns an attribute for the HTTP status code.
func HTTPStatusAttr(status int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, status)
}

// ErrorTypeAttr returns an attribute for the error type.
func ErrorTypeAttr(errType string) attribute.KeyValue {
	return attribute.String(AttrErrorType, errType)
}
