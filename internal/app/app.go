// Package app wires configuration into a ready-to-run Dispatcher. It is
// shared by every binary.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/dispatch"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
	"github.com/lsm/cloudwatch-stdf/internal/publish"
	cetransport "github.com/lsm/cloudwatch-stdf/internal/publish/cloudevents"
	httptransport "github.com/lsm/cloudwatch-stdf/internal/publish/http"
	kafkatransport "github.com/lsm/cloudwatch-stdf/internal/publish/kafka"
	natstransport "github.com/lsm/cloudwatch-stdf/internal/publish/nats"
	pubsubtransport "github.com/lsm/cloudwatch-stdf/internal/publish/pubsub"
	snstransport "github.com/lsm/cloudwatch-stdf/internal/publish/sns"
	"github.com/lsm/cloudwatch-stdf/internal/publish/stdout"
)

// Options carries the process-level collaborators.
type Options struct {
	Logger     *slog.Logger
	Tracer     trace.Tracer
	Registerer prometheus.Registerer // nil disables metrics
	Stdout     io.Writer             // used by the stdout transport
}

// Runtime is a wired Dispatcher plus what is needed to shut it down.
type Runtime struct {
	Dispatcher *dispatch.Dispatcher
	Publisher  *publish.Publisher
	Metrics    *observability.Metrics
}

// Close closes the transport.
func (r *Runtime) Close() error {
	return r.Publisher.Close()
}

// tracerSetter is implemented by every transport that emits spans.
type tracerSetter interface {
	SetTracer(trace.Tracer)
}

// Build validates the envelope settings, then connects the configured
// transport. Settings are checked first so a misconfigured deployment never
// dials the broker.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport, err := NewTransport(ctx, cfg, opts.Stdout)
	if err != nil {
		return nil, err
	}
	if ts, ok := transport.(tracerSetter); ok && opts.Tracer != nil {
		ts.SetTracer(opts.Tracer)
	}
	transport = publish.NewRateLimited(transport, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)

	pub, err := publish.New(transport, cfg.Settings.Topic())
	if err != nil {
		return nil, errors.Join(err, transport.Close())
	}
	pub.SetLogger(opts.Logger)
	if opts.Tracer != nil {
		pub.SetTracer(opts.Tracer)
	}

	dopts := []dispatch.Option{dispatch.WithLogger(opts.Logger), dispatch.WithTracer(opts.Tracer)}
	var metrics *observability.Metrics
	if opts.Registerer != nil {
		metrics = observability.NewMetrics(opts.Registerer)
		dopts = append(dopts, dispatch.WithMetrics(metrics))
	}

	d, err := dispatch.New(&cfg.Settings, pub, dopts...)
	if err != nil {
		return nil, errors.Join(err, pub.Close())
	}

	opts.Logger.Info("dispatcher ready",
		"transport", cfg.Transport,
		"topic", cfg.Settings.Topic(),
		"rate_limit", cfg.RateLimit.PerSecond,
	)
	return &Runtime{Dispatcher: d, Publisher: pub, Metrics: metrics}, nil
}

// NewTransport creates the transport named by cfg.Transport.
func NewTransport(ctx context.Context, cfg *config.Config, out io.Writer) (publish.Transport, error) {
	switch cfg.Transport {
	case config.TransportSNS:
		t, err := snstransport.New(ctx, snstransport.Config{Region: cfg.SNS.Region})
		if err != nil {
			return nil, fmt.Errorf("sns transport: %w", err)
		}
		return t, nil

	case config.TransportKafka:
		t, err := kafkatransport.New(&cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("kafka transport: %w", err)
		}
		return t, nil

	case config.TransportNATS:
		t, err := natstransport.New(natstransport.Config{
			URL:   cfg.NATS.URL,
			Name:  cfg.NATS.Name,
			Token: cfg.NATS.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("nats transport: %w", err)
		}
		return t, nil

	case config.TransportPubSub:
		t, err := pubsubtransport.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub transport: %w", err)
		}
		return t, nil

	case config.TransportCloudEvents:
		t, err := cetransport.New(cetransport.Config{
			URL:    cfg.CloudEvents.URL,
			Source: cfg.CloudEvents.Source,
			Type:   cfg.CloudEvents.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("cloudevents transport: %w", err)
		}
		return t, nil

	case config.TransportHTTP:
		t, err := httptransport.New(httptransport.Config{URL: cfg.HTTP.URL, Headers: cfg.HTTP.Headers})
		if err != nil {
			return nil, fmt.Errorf("http transport: %w", err)
		}
		return t, nil

	case config.TransportStdout:
		return stdout.New(out), nil

	default:
		return nil, fmt.Errorf("unsupported transport: %q", cfg.Transport)
	}
}
