package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
)

// RunEncode wraps plain log lines into a subscription invocation payload.
func RunEncode(args []string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	if isHelp(args) {
		fmt.Fprintln(w, `Usage: stdfctl encode --input <text|file> [--log-group <name>] [--timestamp <ms>]

Builds a CloudWatch Logs subscription payload, one log event per input line.
Useful for feeding 'stdfctl decode', 'stdfctl format' or a running trigger.

Options:
  --input <data>      Log lines as a string or path to a file (required)
  --log-group <name>  Log group recorded in the batch (default: /stdfctl/test)
  --timestamp <ms>    Event timestamp in epoch milliseconds (default: now)

Examples:
  stdfctl encode --input app.log > event.json
  stdfctl encode --input 'first line' --timestamp 1568741467946`)
		return nil
	}

	input, err := parseStringFlag(args, "--input")
	if err != nil {
		return err
	}
	if input == "" {
		return fmt.Errorf("--input is required")
	}
	logGroup, err := parseStringFlag(args, "--log-group")
	if err != nil {
		return err
	}
	if logGroup == "" {
		logGroup = "/stdfctl/test"
	}
	ts, err := parseInt64Flag(args, "--timestamp", time.Now().UnixMilli())
	if err != nil {
		return err
	}

	data, err := loadInput(input)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	batch := &awslogs.Batch{
		MessageType:         awslogs.MessageTypeData,
		Owner:               "000000000000",
		LogGroup:            logGroup,
		LogStream:           "stdfctl",
		SubscriptionFilters: []string{"stdfctl"},
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		batch.LogEvents = append(batch.LogEvents, awslogs.LogEvent{
			ID:        uuid.NewString(),
			Timestamp: ts,
			Message:   line,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(batch.LogEvents) == 0 {
		return fmt.Errorf("no log lines found in input")
	}

	encoded, err := awslogs.Encode(batch)
	if err != nil {
		return err
	}
	out, err := json.Marshal(awslogs.Event{AWSLogs: awslogs.Data{Data: encoded}})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
