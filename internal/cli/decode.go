package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
)

// RunDecode prints the batch carried by a subscription payload.
func RunDecode(args []string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if isHelp(args) {
		fmt.Fprintln(w, `Usage: stdfctl decode --input <json|file>

Decodes a CloudWatch Logs subscription payload and prints the batch.

Options:
  --input <data>   Invocation JSON as a string or path to a file (required)`)
		return nil
	}

	evt, err := readEvent(args)
	if err != nil {
		return err
	}
	batch, err := awslogs.DecodeBatch(evt.AWSLogs.Data)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

func readEvent(args []string) (awslogs.Event, error) {
	input, err := parseStringFlag(args, "--input")
	if err != nil {
		return awslogs.Event{}, err
	}
	if input == "" {
		return awslogs.Event{}, fmt.Errorf("--input is required")
	}
	raw, err := loadInput(input)
	if err != nil {
		return awslogs.Event{}, fmt.Errorf("load input: %w", err)
	}
	return awslogs.ParseEvent([]byte(strings.TrimSpace(string(raw))))
}
