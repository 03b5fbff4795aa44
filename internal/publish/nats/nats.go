// Package nats publishes envelopes to NATS subjects.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// HeaderSubject carries the envelope subject. The NATS subject itself is
// the topic.
const HeaderSubject = "Stdf-Subject"

// conn abstracts the NATS connection for testing.
type conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Config holds NATS transport configuration.
type Config struct {
	URL     string
	Name    string
	Token   string
	Timeout time.Duration
}

// Transport publishes core NATS messages and flushes after each one so a
// server-side rejection surfaces as an error.
type Transport struct {
	conn   conn
	tracer trace.Tracer
}

// New connects to the NATS server.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newTransport(nc), nil
}

func newTransport(c conn) *Transport {
	return &Transport{
		conn:   c,
		tracer: noop.NewTracerProvider().Tracer("nats-transport"),
	}
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish sends body on the subject named by topic.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(tracing.SystemAttr("nats"), tracing.TopicAttr(topic)),
	)
	defer span.End()

	msg := &nats.Msg{
		Subject: topic,
		Data:    body,
		Header:  make(nats.Header),
	}
	msg.Header.Set(HeaderSubject, subject)
	for k, v := range correlation.Headers(ctx) {
		msg.Header.Set(k, v)
	}

	if err := t.conn.PublishMsg(msg); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("nats publish: %w", err)
	}
	if err := t.conn.FlushWithContext(ctx); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("nats flush: %w", err)
	}
	tracing.SetSpanOK(span)
	return nil
}

// Close drains pending messages and closes the connection.
func (t *Transport) Close() error {
	return t.conn.Drain()
}
