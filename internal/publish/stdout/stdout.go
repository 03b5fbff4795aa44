// Package stdout writes envelopes to a stream as JSON lines, for local runs.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Line is one published message.
type Line struct {
	Topic   string          `json:"topic"`
	Subject string          `json:"subject"`
	Message json.RawMessage `json:"message"`
}

// Transport writes one Line per publish.
type Transport struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// New writes to w, or os.Stdout when w is nil.
func New(w io.Writer) *Transport {
	if w == nil {
		w = os.Stdout
	}
	return &Transport{enc: json.NewEncoder(w)}
}

// Publish writes one Line. The body must be valid JSON so it can be embedded
// as is.
func (t *Transport) Publish(ctx context.Context, topic, subject string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(body) {
		return fmt.Errorf("stdout: message is not valid JSON")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(Line{Topic: topic, Subject: subject, Message: body}); err != nil {
		return fmt.Errorf("stdout: %w", err)
	}
	return nil
}

// Close is a no-op; the writer belongs to the caller.
func (t *Transport) Close() error { return nil }
