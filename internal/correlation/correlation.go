// Package correlation carries the invocation ID from the trigger to every
// log line and outgoing message.
package correlation

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Header names, lower-cased.
const (
	HeaderInvocationID   = "stdf-invocation-id"
	HeaderXCorrelationID = "x-correlation-id"
	HeaderXRequestID     = "x-request-id"
	HeaderTraceparent    = "traceparent"
)

// Sources for IDs that do not come from a header.
const (
	SourceLambda    = "lambda"
	SourceGenerated = "generated"
)

// ID is an invocation ID and where it was found.
type ID struct {
	Value  string
	Source string
}

// idHeaders is checked in order before falling back to traceparent.
var idHeaders = []string{HeaderInvocationID, HeaderXCorrelationID, HeaderXRequestID}

// FromHeaders picks the invocation ID from lower-cased request headers. A
// W3C traceparent contributes its trace ID; without any, a UUID is generated.
func FromHeaders(headers map[string]string) ID {
	for _, h := range idHeaders {
		if v := headers[h]; v != "" {
			return ID{Value: v, Source: h}
		}
	}
	if traceID := traceIDFrom(headers[HeaderTraceparent]); traceID != "" {
		return ID{Value: traceID, Source: HeaderTraceparent}
	}
	return Generate()
}

// FromLambda uses the request ID of a Lambda invocation context.
func FromLambda(ctx context.Context) ID {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return ID{Value: lc.AwsRequestID, Source: SourceLambda}
	}
	return Generate()
}

// Generate returns a fresh UUID.
func Generate() ID {
	return ID{Value: uuid.NewString(), Source: SourceGenerated}
}

// traceIDFrom returns the trace-id field of a version-traceid-parentid-flags
// header, or "" when it is not a valid non-zero trace ID.
func traceIDFrom(traceparent string) string {
	parts := strings.Split(traceparent, "-")
	if len(parts) < 2 {
		return ""
	}
	tid, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return ""
	}
	return tid.String()
}

type ctxKey struct{}

// WithID stores the invocation ID on ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the invocation ID stored by WithID, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Headers returns the metadata a transport attaches to each message: the
// invocation ID when known and the traceparent of the active span.
func Headers(ctx context.Context) map[string]string {
	headers := propagation.MapCarrier{}
	if id := FromContext(ctx); id != "" {
		headers[HeaderInvocationID] = id
	}
	propagation.TraceContext{}.Inject(ctx, headers)
	return headers
}
