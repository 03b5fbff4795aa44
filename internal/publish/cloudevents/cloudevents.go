// Package cloudevents delivers envelopes as CloudEvents over HTTP.
package cloudevents

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// Extension attribute names. CloudEvents allows only lowercase alphanumerics.
const (
	ExtTopic        = "stdftopic"
	ExtInvocationID = "invocationid"
)

// sender abstracts the CloudEvents client for testing.
type sender interface {
	Send(ctx context.Context, event cloudevents.Event) cloudevents.Result
}

// Config holds CloudEvents transport configuration.
type Config struct {
	URL    string
	Source string
	Type   string
}

// Transport sends one binary-mode CloudEvent per envelope: attributes travel
// as ce-* headers and the envelope JSON is the body. The envelope subject
// becomes the CloudEvent subject.
type Transport struct {
	client sender
	config Config
	tracer trace.Tracer
}

// New creates a CloudEvents HTTP client targeting cfg.URL.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.Source == "" || cfg.Type == "" {
		return nil, fmt.Errorf("source and type are required")
	}

	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("cloudevents client: %w", err)
	}
	return newTransport(client, cfg), nil
}

func newTransport(client sender, cfg Config) *Transport {
	return &Transport{
		client: client,
		config: cfg,
		tracer: noop.NewTracerProvider().Tracer("cloudevents-transport"),
	}
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish wraps body in a CloudEvent and sends it. Both an undelivered
// event and a NACK from the receiver are errors.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(
			tracing.SystemAttr("cloudevents"),
			tracing.TopicAttr(topic),
			tracing.HTTPTargetAttr(t.config.URL),
		),
	)
	defer span.End()

	event := cloudevents.NewEvent()
	event.SetID(uuid.New().String())
	event.SetSource(t.config.Source)
	event.SetType(t.config.Type)
	event.SetSubject(subject)
	if topic != "" {
		event.SetExtension(ExtTopic, topic)
	}
	if id := correlation.FromContext(ctx); id != "" {
		event.SetExtension(ExtInvocationID, id)
	}
	if err := event.SetData(cloudevents.ApplicationJSON, body); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("cloudevent data: %w", err)
	}

	result := t.client.Send(cloudevents.ContextWithTarget(ctx, t.config.URL), event)
	if cloudevents.IsUndelivered(result) {
		tracing.SetSpanError(span, result)
		return fmt.Errorf("cloudevent undelivered: %w", result)
	}
	if !cloudevents.IsACK(result) {
		tracing.SetSpanError(span, result)
		return fmt.Errorf("cloudevent rejected: %w", result)
	}
	tracing.SetSpanOK(span)
	return nil
}

// Close is a no-op; the HTTP client is shared with the SDK.
func (t *Transport) Close() error { return nil }
