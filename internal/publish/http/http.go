// Package http posts envelopes to a webhook endpoint.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/tracing"
)

// Request headers naming the destination.
const (
	HeaderTopic   = "X-Stdf-Topic"
	HeaderSubject = "X-Stdf-Subject"
)

// Config holds the configuration for an HTTP transport.
type Config struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// Transport POSTs each envelope once. Any non-2xx response is an error.
type Transport struct {
	client *http.Client
	config Config
	tracer trace.Tracer
}

// New creates a new HTTP transport.
func New(cfg Config) (*Transport, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Transport{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: cfg,
		tracer: noop.NewTracerProvider().Tracer("http-transport"),
	}, nil
}

// SetTracer sets the tracer for the transport.
func (t *Transport) SetTracer(tracer trace.Tracer) {
	t.tracer = tracer
}

// Publish posts body to the configured URL.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	ctx, span := tracing.StartSpan(ctx, t.tracer, tracing.SpanTransportSend,
		trace.WithAttributes(
			tracing.SystemAttr("http"),
			tracing.TopicAttr(topic),
			tracing.HTTPTargetAttr(t.config.URL),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.URL, bytes.NewReader(body))
	if err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("create request: %w", err)
	}

	// Apply static headers from config first
	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTopic, topic)
	req.Header.Set(HeaderSubject, subject)
	for k, v := range correlation.Headers(ctx) {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		tracing.SetSpanError(span, err)
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	span.SetAttributes(tracing.HTTPStatusAttr(resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		tracing.SetSpanOK(span)
		return nil
	}

	serr := &StatusError{Code: resp.StatusCode}
	tracing.SetSpanError(span, serr)
	return serr
}

// Close releases idle connections.
func (t *Transport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// StatusError represents an HTTP response with a non-2xx status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}
