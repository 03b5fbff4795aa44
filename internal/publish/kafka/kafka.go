// Package kafka publishes envelopes to Kafka topics.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/kafka"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// HeaderSubject carries the message subject, which Kafka has no field for.
const HeaderSubject = "subject"

// producer abstracts the kafka client methods used by Transport for testing.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Transport produces one record per envelope.
type Transport struct {
	client producer
	tracer trace.Tracer
}

// New creates a Kafka transport with cluster configuration.
// This supports SASL authentication and TLS.
func New(cluster *kafka.ClusterConfig) (*Transport, error) {
	if cluster == nil {
		return nil, fmt.Errorf("cluster config is required")
	}

	opts, err := kafka.ProducerOptions(cluster)
	if err != nil {
		return nil, fmt.Errorf("cluster options: %w", err)
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka producer client: %w", err)
	}

	return newTransport(client), nil
}

func newTransport(client producer) *Transport {
	return &Transport{
		client: client,
		tracer: noop.NewTracerProvider().Tracer("kafka-transport"),
	}
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish produces body to topic and waits for the broker acknowledgement.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(tracing.SystemAttr("kafka"), tracing.TopicAttr(topic)),
	)
	defer span.End()

	record := &kgo.Record{
		Topic: topic,
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: HeaderSubject, Value: []byte(subject)},
		},
	}
	for k, v := range correlation.Headers(ctx) {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	results := t.client.ProduceSync(ctx, record)
	if err := results.FirstErr(); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("kafka publish: %w", err)
	}
	tracing.SetSpanOK(span)
	return nil
}

// Close shuts down the producer.
func (t *Transport) Close() error {
	t.client.Close()
	return nil
}
