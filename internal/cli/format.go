package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/stdf"
)

// RunFormat performs a dry run: it decodes a payload and prints the
// envelopes that would be published, without touching any transport.
func RunFormat(args []string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if isHelp(args) {
		fmt.Fprintln(w, `Usage: stdfctl format --input <json|file> [--compact]

Prints the STDF envelope for every record in a subscription payload.
Envelope settings come from the environment (MESSAGE_TITLE, MESSAGE_DESCRIPTION,
SOURCE_ACCOUNT_NUMBER, SOURCE_REGION, APP_NAME) or STDF_CONFIG_FILE.

Options:
  --input <data>   Invocation JSON as a string or path to a file (required)
  --compact        Print one envelope per line exactly as it would be published`)
		return nil
	}

	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	evt, err := readEvent(args)
	if err != nil {
		return err
	}
	records, err := awslogs.Decode(evt)
	if err != nil {
		return err
	}

	compact := hasFlag(args, "--compact")
	for _, rec := range records {
		env, err := stdf.Format(rec, &cfg.Settings)
		if err != nil {
			return err
		}

		var out []byte
		if compact {
			out, err = stdf.Marshal(env)
		} else {
			out, err = json.MarshalIndent(env, "", "  ")
		}
		if err != nil {
			return fmt.Errorf("format output: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(out)); err != nil {
			return err
		}
	}
	return nil
}
