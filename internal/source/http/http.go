// Package http triggers invocations from HTTP POST requests carrying the
// subscription event JSON.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/dispatch"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
)

// DefaultMaxBodyBytes matches the Lambda synchronous invocation payload limit.
const DefaultMaxBodyBytes = 6 << 20

// Handler processes one invocation body.
type Handler func(ctx context.Context, body []byte) error

// Config holds HTTP trigger configuration.
type Config struct {
	ListenAddr   string
	Path         string
	MaxBodyBytes int64
}

// Source receives invocations via HTTP POST and passes them to the handler.
type Source struct {
	server     *http.Server
	logger     *slog.Logger
	addr       string
	path       string
	maxBody    int64
	ListenAddr string
	ready      chan struct{}
}

type response struct {
	InvocationID string `json:"invocation_id"`
	Error        string `json:"error,omitempty"`
}

// NewSource creates a new HTTP trigger.
func NewSource(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("HTTP listen address is required")
	}
	logger = observability.ContextLogger(logger)
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Source{
		addr:    cfg.ListenAddr,
		path:    path,
		maxBody: maxBody,
		logger:  logger,
		ready:   make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (s *Source) Ready() <-chan struct{} { return s.ready }

// Handler returns the instrumented request handler. A decode failure is the
// caller's fault (400); anything else is ours (500).
func (s *Source) Handler(handler Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		headers := make(map[string]string)
		for k, v := range r.Header {
			if len(v) > 0 {
				headers[strings.ToLower(k)] = v[0]
			}
		}
		id := correlation.FromHeaders(headers)
		ctx := correlation.WithID(r.Context(), id.Value)
		w.Header().Set(correlation.HeaderInvocationID, id.Value)

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, response{InvocationID: id.Value, Error: "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, response{InvocationID: id.Value, Error: "failed to read body"})
			return
		}

		if err := handler(ctx, body); err != nil {
			// Only decode errors are echoed; others are reduced to their kind.
			status, msg := http.StatusInternalServerError, dispatch.ErrorKind(err)
			if errors.Is(err, awslogs.ErrDecode) {
				status, msg = http.StatusBadRequest, err.Error()
			}
			s.logger.ErrorContext(ctx, "handler error", "status", status, "error", err)
			writeJSON(w, status, response{InvocationID: id.Value, Error: msg})
			return
		}

		writeJSON(w, http.StatusOK, response{InvocationID: id.Value})
	})
	return otelhttp.NewHandler(mux, "stdf.trigger")
}

// Start begins accepting HTTP requests and dispatching invocations to the handler.
// Blocks until ctx is cancelled.
func (s *Source) Start(ctx context.Context, handler Handler) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.ListenAddr = lis.Addr().String()

	s.server = &http.Server{Handler: s.Handler(handler)}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http trigger starting", "addr", s.ListenAddr, "path", s.path)
		close(s.ready)
		if err := s.server.Serve(lis); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		if err := s.server.Shutdown(context.Background()); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close stops the HTTP server.
func (s *Source) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
