package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
	"github.com/lsm/cloudwatch-stdf/internal/stdf"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// Subject is attached to every published envelope.
const Subject = "stdfMessage"

// Transport delivers one message to a topic. Implementations make a single
// attempt and return its error unchanged.
type Transport interface {
	Publish(ctx context.Context, topic, subject string, body []byte) error
	Close() error
}

// ErrPublish matches every *Error via errors.Is.
var ErrPublish = errors.New("publish failed")

// Error reports a rejected or failed publish.
type Error struct {
	Topic string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish to %q: %v", e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrPublish.
func (e *Error) Is(target error) bool { return target == ErrPublish }

// Publisher serializes envelopes and hands them to a Transport.
type Publisher struct {
	transport Transport
	topic     string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New creates a Publisher bound to a single topic.
func New(transport Transport, topic string) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	return &Publisher{
		transport: transport,
		topic:     topic,
		logger:    observability.ContextLogger(slog.Default()),
		tracer:    noop.NewTracerProvider().Tracer("publisher"),
	}, nil
}

// SetTracer sets the tracer for the publisher.
func (p *Publisher) SetTracer(tracer trace.Tracer) {
	p.tracer = tracer
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	p.logger = observability.ContextLogger(logger)
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// Publish serializes env and sends it exactly once.
func (p *Publisher) Publish(ctx context.Context, env *stdf.Envelope) error {
	start := time.Now()

	attrs := []attribute.KeyValue{
		tracing.TopicAttr(p.topic),
		tracing.InvocationAttr(correlation.FromContext(ctx)),
	}
	if env != nil {
		attrs = append(attrs, tracing.EventIDAttr(env.Meta.Source.EventID))
	}
	ctx, span := tracing.StartSpan(ctx, p.tracer, tracing.SpanPublish, trace.WithAttributes(attrs...))
	defer span.End()

	body, err := stdf.Marshal(env)
	if err != nil {
		perr := &Error{Topic: p.topic, Err: fmt.Errorf("marshal envelope: %w", err)}
		tracing.SetSpanError(span, perr)
		return perr
	}

	if err := p.transport.Publish(ctx, p.topic, Subject, body); err != nil {
		perr := &Error{Topic: p.topic, Err: err}
		tracing.SetSpanError(span, perr)
		p.logger.ErrorContext(ctx, "publish failed",
			"topic", p.topic,
			"event_id", env.Meta.Source.EventID,
			"error", err,
		)
		return perr
	}

	tracing.SetSpanOK(span)
	p.logger.DebugContext(ctx, "envelope published",
		"topic", p.topic,
		"event_id", env.Meta.Source.EventID,
		"bytes", len(body),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close shuts down the underlying transport.
func (p *Publisher) Close() error {
	return p.transport.Close()
}
