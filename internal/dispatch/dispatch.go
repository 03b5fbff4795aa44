// Package dispatch runs one subscription batch through decode, format and
// publish.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
	"github.com/lsm/cloudwatch-stdf/internal/publish"
	"github.com/lsm/cloudwatch-stdf/internal/stdf"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// Publisher sends one envelope. *publish.Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, env *stdf.Envelope) error
}

// Stats counts what one invocation did before it returned.
type Stats struct {
	Decoded   int
	Published int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = observability.ContextLogger(logger) }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

// Dispatcher holds only immutable collaborators, so concurrent Handle
// calls are independent.
type Dispatcher struct {
	settings  *config.Settings
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
}

// New validates settings and creates a Dispatcher. Missing configuration is
// reported here, before any record is processed.
func New(settings *config.Settings, pub Publisher, opts ...Option) (*Dispatcher, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	d := &Dispatcher{
		settings:  settings,
		publisher: pub,
		logger:    observability.ContextLogger(slog.Default()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// HandleRaw parses the invocation JSON and handles it.
func (d *Dispatcher) HandleRaw(ctx context.Context, raw []byte) error {
	ctx = ensureID(ctx)
	evt, err := awslogs.ParseEvent(raw)
	if err != nil {
		d.finish(ctx, time.Now(), Stats{}, err)
		return err
	}
	return d.Handle(ctx, evt)
}

// Handle decodes the batch once, then formats and publishes each record in
// order. It stops at the first error; records already published stay
// published.
func (d *Dispatcher) Handle(ctx context.Context, evt awslogs.Event) error {
	start := time.Now()
	ctx = ensureID(ctx)

	ctx, span := tracing.StartSpan(ctx, d.tracer, tracing.SpanInvocation,
		trace.WithAttributes(tracing.InvocationAttr(correlation.FromContext(ctx))),
	)
	defer span.End()

	stats, err := d.process(ctx, evt)

	span.SetAttributes(tracing.RecordsAttr(stats.Decoded), tracing.PublishedAttr(stats.Published))
	if err != nil {
		tracing.SetSpanError(span, err)
		span.SetAttributes(tracing.ErrorTypeAttr(ErrorKind(err)))
	} else {
		tracing.SetSpanOK(span)
	}

	d.finish(ctx, start, stats, err)
	return err
}

// ensureID gives ctx an invocation ID when the trigger did not supply one.
func ensureID(ctx context.Context) context.Context {
	if correlation.FromContext(ctx) != "" {
		return ctx
	}
	return correlation.WithID(ctx, correlation.Generate().Value)
}

func (d *Dispatcher) process(ctx context.Context, evt awslogs.Event) (Stats, error) {
	var stats Stats

	batch, err := d.decode(ctx, evt)
	if err != nil {
		return stats, err
	}
	stats.Decoded = len(batch.LogEvents)

	d.logger.InfoContext(ctx, "batch decoded",
		"message_type", batch.MessageType,
		"log_group", batch.LogGroup,
		"log_stream", batch.LogStream,
		"owner", batch.Owner,
		"subscription_filters", batch.SubscriptionFilters,
		"records", stats.Decoded,
	)

	publishStart := time.Now()
	defer d.observe("publish", publishStart)

	for _, rec := range batch.LogEvents {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("aborted after %d of %d records: %w", stats.Published, stats.Decoded, err)
		}

		env, err := stdf.Format(rec, d.settings)
		if err != nil {
			return stats, err
		}
		if err := d.publisher.Publish(ctx, env); err != nil {
			return stats, err
		}

		stats.Published++
		if d.metrics != nil {
			d.metrics.EnvelopesPublished.Inc()
		}
	}
	return stats, nil
}

func (d *Dispatcher) decode(ctx context.Context, evt awslogs.Event) (*awslogs.Batch, error) {
	start := time.Now()
	_, span := tracing.StartSpan(ctx, d.tracer, tracing.SpanDecode)
	defer span.End()
	defer d.observe("decode", start)

	batch, err := awslogs.DecodeBatch(evt.AWSLogs.Data)
	if err != nil {
		tracing.SetSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(tracing.RecordsAttr(len(batch.LogEvents)), tracing.LogGroupAttr(batch.LogGroup))
	tracing.SetSpanOK(span)

	if d.metrics != nil {
		d.metrics.RecordsDecoded.Add(float64(len(batch.LogEvents)))
	}
	return batch, nil
}

func (d *Dispatcher) observe(phase string, start time.Time) {
	if d.metrics != nil {
		d.metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}

func (d *Dispatcher) finish(ctx context.Context, start time.Time, stats Stats, err error) {
	d.observe("invocation", start)

	if err != nil {
		kind := ErrorKind(err)
		if d.metrics != nil {
			d.metrics.InvocationsTotal.WithLabelValues("error").Inc()
			d.metrics.ErrorsTotal.WithLabelValues(kind).Inc()
		}
		d.logger.ErrorContext(ctx, "invocation failed",
			"error_kind", kind,
			"records", stats.Decoded,
			"published", stats.Published,
			"error", err,
		)
		return
	}

	if d.metrics != nil {
		d.metrics.InvocationsTotal.WithLabelValues("success").Inc()
	}
	d.logger.InfoContext(ctx, "invocation complete",
		"records", stats.Decoded,
		"published", stats.Published,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// ErrorKind classifies err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, awslogs.ErrDecode):
		return observability.ErrorKindDecode
	case errors.Is(err, config.ErrMissingConfiguration):
		return observability.ErrorKindConfig
	case errors.Is(err, publish.ErrPublish):
		return observability.ErrorKindPublish
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.ErrorKindCanceled
	default:
		return observability.ErrorKindOther
	}
}
