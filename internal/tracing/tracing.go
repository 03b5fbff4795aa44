// Package tracing sets up OpenTelemetry span export and the span helpers
// used along the invocation path.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/config"
)

// Options tune New beyond what the configuration file carries.
type Options struct {
	ServiceName string
	// Exporter replaces the OTLP exporter and turns export on regardless
	// of config.TracingConfig.Enabled.
	Exporter sdktrace.SpanExporter
}

// Provider owns the process tracer. sdk is nil when export is off.
type Provider struct {
	tracer trace.Tracer
	sdk    *sdktrace.TracerProvider
}

// New builds the Provider and installs it, with W3C trace context
// propagation, as the global provider.
func New(ctx context.Context, cfg config.TracingConfig, opts Options, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exporter := opts.Exporter
	if exporter == nil {
		if !cfg.Enabled {
			logger.Info("tracing disabled")
			return &Provider{tracer: noop.NewTracerProvider().Tracer(opts.ServiceName)}, nil
		}
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("create OTLP exporter: %w", err)
		}
		exporter = exp
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(semconv.ServiceName(opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("tracing enabled", "endpoint", cfg.Endpoint, "service", opts.ServiceName)
	return &Provider{tracer: tp.Tracer(opts.ServiceName), sdk: tp}, nil
}

// Tracer returns the tracer handed to the dispatcher and transports.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Flush exports every span ended so far. A Lambda environment is frozen as
// soon as the handler returns, so call it before returning.
func (p *Provider) Flush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
