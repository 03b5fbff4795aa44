// Package sns publishes envelopes to Amazon SNS topics.
package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// api abstracts the SNS client for testing.
type api interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config holds SNS transport configuration.
type Config struct {
	Region string // Empty uses the SDK's default resolution chain.
}

// Transport publishes to SNS. The topic is the topic ARN.
type Transport struct {
	client api
	tracer trace.Tracer
}

// New loads AWS credentials from the environment and creates a Transport.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newTransport(sns.NewFromConfig(awsCfg)), nil
}

func newTransport(client api) *Transport {
	return &Transport{
		client: client,
		tracer: noop.NewTracerProvider().Tracer("sns-transport"),
	}
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish sends body as the message text with the given subject.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(tracing.SystemAttr("sns"), tracing.TopicAttr(topic)),
	)
	defer span.End()

	input := &sns.PublishInput{
		TopicArn:          aws.String(topic),
		Subject:           aws.String(subject),
		Message:           aws.String(string(body)),
		MessageAttributes: messageAttributes(correlation.Headers(ctx)),
	}

	if _, err := t.client.Publish(ctx, input); err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("sns publish: %w", err)
	}
	tracing.SetSpanOK(span)
	return nil
}

// Close is a no-op; the SDK client holds no long-lived connections of its own.
func (t *Transport) Close() error { return nil }

// messageAttributes converts headers to SNS string attributes. SNS rejects
// empty attribute values, so those are dropped.
func messageAttributes(headers map[string]string) map[string]types.MessageAttributeValue {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]types.MessageAttributeValue, len(headers))
	for k, v := range headers {
		if v == "" {
			continue
		}
		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	return attrs
}
