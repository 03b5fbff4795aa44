// Package awslogs decodes CloudWatch Logs subscription payloads.
//
// A subscription delivers its batch as base64 text wrapping a gzip member
// whose content is a JSON document with an ordered logEvents array.
package awslogs

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// Message types emitted by CloudWatch Logs subscriptions.
const (
	MessageTypeData    = "DATA_MESSAGE"
	MessageTypeControl = "CONTROL_MESSAGE"
)

// Event is the invocation input delivered by a subscription filter.
type Event struct {
	AWSLogs Data `json:"awslogs"`
}

// Data holds the encoded batch.
type Data struct {
	Data string `json:"data"`
}

// LogEvent is one log line captured by CloudWatch Logs.
type LogEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
	Message   string `json:"message"`
}

// Batch is a decoded subscription payload. Only LogEvents drives
// processing; the remaining fields are carried for logging.
type Batch struct {
	MessageType         string     `json:"messageType"`
	Owner               string     `json:"owner"`
	LogGroup            string     `json:"logGroup"`
	LogStream           string     `json:"logStream"`
	SubscriptionFilters []string   `json:"subscriptionFilters"`
	LogEvents           []LogEvent `json:"logEvents"`
}

// wireBatch mirrors Batch with pointers so absent fields can be told apart
// from zero values.
type wireBatch struct {
	MessageType         string      `json:"messageType"`
	Owner               string      `json:"owner"`
	LogGroup            string      `json:"logGroup"`
	LogStream           string      `json:"logStream"`
	SubscriptionFilters []string    `json:"subscriptionFilters"`
	LogEvents           *[]wireLine `json:"logEvents"`
}

type wireLine struct {
	ID        *string `json:"id"`
	Timestamp *int64  `json:"timestamp"`
	Message   *string `json:"message"`
}

// ParseEvent parses the raw invocation document.
func ParseEvent(raw []byte) (Event, error) {
	var envelope struct {
		AWSLogs *struct {
			Data *string `json:"data"`
		} `json:"awslogs"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Event{}, &DecodeError{Stage: StageInput, Err: err}
	}
	if envelope.AWSLogs == nil || envelope.AWSLogs.Data == nil {
		return Event{}, &DecodeError{Stage: StageInput, Err: errors.New("awslogs.data is missing")}
	}
	return Event{AWSLogs: Data{Data: *envelope.AWSLogs.Data}}, nil
}

// Decode returns the log events of evt in delivery order.
func Decode(evt Event) ([]LogEvent, error) {
	batch, err := DecodeBatch(evt.AWSLogs.Data)
	if err != nil {
		return nil, err
	}
	return batch.LogEvents, nil
}

// DecodeBatch decodes a base64 gzip JSON payload. Any failure yields a
// *DecodeError and no events.
func DecodeBatch(data string) (*Batch, error) {
	if data == "" {
		return nil, &DecodeError{Stage: StageInput, Err: errors.New("awslogs.data is empty")}
	}

	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, &DecodeError{Stage: StageBase64, Err: err}
	}

	text, err := gunzip(compressed)
	if err != nil {
		return nil, &DecodeError{Stage: StageGzip, Err: err}
	}

	if !utf8.Valid(text) {
		return nil, &DecodeError{Stage: StageUTF8, Err: errors.New("payload is not valid UTF-8")}
	}

	var wire wireBatch
	if err := json.Unmarshal(text, &wire); err != nil {
		return nil, &DecodeError{Stage: StageJSON, Err: err}
	}

	return wire.toBatch()
}

func gunzip(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *wireBatch) toBatch() (*Batch, error) {
	if w.LogEvents == nil {
		return nil, &DecodeError{Stage: StageStructure, Err: errors.New("logEvents is missing")}
	}

	events := make([]LogEvent, 0, len(*w.LogEvents))
	for i, line := range *w.LogEvents {
		switch {
		case line.ID == nil:
			return nil, &DecodeError{Stage: StageStructure, Err: fmt.Errorf("logEvents[%d]: id is missing", i)}
		case line.Timestamp == nil:
			return nil, &DecodeError{Stage: StageStructure, Err: fmt.Errorf("logEvents[%d]: timestamp is missing", i)}
		case line.Message == nil:
			return nil, &DecodeError{Stage: StageStructure, Err: fmt.Errorf("logEvents[%d]: message is missing", i)}
		}
		events = append(events, LogEvent{
			ID:        *line.ID,
			Timestamp: *line.Timestamp,
			Message:   *line.Message,
		})
	}

	return &Batch{
		MessageType:         w.MessageType,
		Owner:               w.Owner,
		LogGroup:            w.LogGroup,
		LogStream:           w.LogStream,
		SubscriptionFilters: w.SubscriptionFilters,
		LogEvents:           events,
	}, nil
}

// Encode produces the subscription wire form of b.
func Encode(b *Batch) (string, error) {
	if b == nil {
		return "", errors.New("batch is required")
	}
	if b.LogEvents == nil {
		// Keep the key present so the result decodes.
		cp := *b
		cp.LogEvents = []LogEvent{}
		b = &cp
	}

	text, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(text); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
