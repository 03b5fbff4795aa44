package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lsm/cloudwatch-stdf/internal/app"
	"github.com/lsm/cloudwatch-stdf/internal/config"
)

// RunDoctor checks that the runtime configuration can start a dispatcher.
func RunDoctor(ctx context.Context, args []string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if isHelp(args) {
		fmt.Fprintln(w, `Usage: stdfctl doctor

Checks the runtime configuration:
  - Configuration loads (STDF_CONFIG_FILE and environment)
  - Every envelope setting is present
  - The configured transport can be created`)
		return nil
	}

	fmt.Fprintln(w, "stdfctl doctor")
	fmt.Fprintln(w)

	cfg, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(w, "  ✗ Configuration failed to load\n    %v\n", err)
		return fmt.Errorf("doctor found 1 issue(s)")
	}
	fmt.Fprintf(w, "  ✓ Configuration loaded (transport %s)\n", cfg.Transport)

	failures := 0

	var me *config.MissingError
	switch err := cfg.Settings.Validate(); {
	case err == nil:
		fmt.Fprintln(w, "  ✓ Envelope settings present")
	case errors.As(err, &me):
		for _, key := range me.Keys {
			fmt.Fprintf(w, "  ✗ %s is not set\n", key)
		}
		fmt.Fprintln(w, "    Hint: an empty value counts as set; the variable must exist")
		failures++
	default:
		fmt.Fprintf(w, "  ✗ %v\n", err)
		failures++
	}

	transport, err := app.NewTransport(ctx, cfg, io.Discard)
	if err != nil {
		fmt.Fprintf(w, "  ✗ Transport %s unavailable\n    %v\n", cfg.Transport, err)
		failures++
	} else {
		_ = transport.Close()
		fmt.Fprintf(w, "  ✓ Transport %s created\n", cfg.Transport)
	}

	fmt.Fprintln(w)
	if failures > 0 {
		return fmt.Errorf("doctor found %d issue(s)", failures)
	}
	fmt.Fprintln(w, "All checks passed.")
	return nil
}
