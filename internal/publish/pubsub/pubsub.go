// Package pubsub publishes envelopes to Google Cloud Pub/Sub topics.
package pubsub

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// AttrSubject is the message attribute carrying the envelope subject.
const AttrSubject = "subject"

// publisher abstracts the Pub/Sub client for testing.
type publisher interface {
	Publish(ctx context.Context, topicID string, msg *pubsub.Message) (string, error)
	Close() error
}

// Transport publishes one Pub/Sub message per envelope and waits for the
// server-assigned message ID.
type Transport struct {
	client publisher
	tracer trace.Tracer
}

// New creates a Pub/Sub client for projectID using application default credentials.
func New(ctx context.Context, projectID string) (*Transport, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}
	return newTransport(&clientPublisher{client: client, topics: map[string]*pubsub.Topic{}}), nil
}

func newTransport(client publisher) *Transport {
	return &Transport{
		client: client,
		tracer: noop.NewTracerProvider().Tracer("pubsub-transport"),
	}
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish sends body to the topic ID.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(tracing.SystemAttr("gcp_pubsub"), tracing.TopicAttr(topic)),
	)
	defer span.End()

	attrs := correlation.Headers(ctx)
	attrs[AttrSubject] = subject

	if _, err := t.client.Publish(ctx, topic, &pubsub.Message{Data: body, Attributes: attrs}); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("pubsub publish: %w", err)
	}
	tracing.SetSpanOK(span)
	return nil
}

// Close flushes topics and closes the client.
func (t *Transport) Close() error {
	return t.client.Close()
}

// clientPublisher keeps one *pubsub.Topic per topic ID, since each topic
// owns its own batching goroutines.
type clientPublisher struct {
	client *pubsub.Client
	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func (c *clientPublisher) topic(id string) *pubsub.Topic {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.topics[id]
	if !ok {
		t = c.client.Topic(id)
		c.topics[id] = t
	}
	return t
}

func (c *clientPublisher) Publish(ctx context.Context, topicID string, msg *pubsub.Message) (string, error) {
	return c.topic(topicID).Publish(ctx, msg).Get(ctx)
}

func (c *clientPublisher) Close() error {
	c.mu.Lock()
	for _, t := range c.topics {
		t.Stop()
	}
	c.mu.Unlock()
	return c.client.Close()
}
