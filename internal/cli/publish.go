package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lsm/cloudwatch-stdf/internal/app"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/correlation"
	"github.com/lsm/cloudwatch-stdf/internal/observability"
)

// RunPublish sends a subscription payload through the configured transport,
// exactly as a live invocation would.
func RunPublish(ctx context.Context, args []string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if isHelp(args) {
		fmt.Fprintln(w, `Usage: stdfctl publish --input <json|file> [--transport <name>] [--invocation-id <id>]

Decodes, formats and publishes every record using the runtime configuration.

Options:
  --input <data>          Invocation JSON as a string or path to a file (required)
  --transport <name>      Override STDF_TRANSPORT (sns, kafka, nats, pubsub, cloudevents, http, stdout)
  --invocation-id <id>    Invocation ID to attach (default: generated)`)
		return nil
	}

	input, err := parseStringFlag(args, "--input")
	if err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("--input is required")
	}
	transport, err := parseStringFlag(args, "--transport")
	if err != nil {
		return err
	}
	invocationID, err := parseStringFlag(args, "--invocation-id")
	if err != nil {
		return err
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if transport != "" {
		cfg.Transport = transport
	}

	raw, err := loadInput(input)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	logger := observability.NewLogger(os.Stderr, "stdfctl", observability.ParseLevel(cfg.LogLevel))
	rt, err := app.Build(ctx, cfg, app.Options{Logger: logger, Stdout: w})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if invocationID != "" {
		ctx = correlation.WithID(ctx, invocationID)
	}
	return rt.Dispatcher.HandleRaw(ctx, []byte(strings.TrimSpace(string(raw))))
}
