package stdout

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestTransport_Publish(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)

	if err := tr.Publish(context.Background(), "alerts", "stdfMessage", []byte(`{"n":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := tr.Publish(context.Background(), "alerts", "stdfMessage", []byte(`{"n":2}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var lines []Line
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var l Line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("line is not json: %v", err)
		}
		lines = append(lines, l)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Topic != "alerts" || lines[0].Subject != "stdfMessage" || string(lines[0].Message) != `{"n":1}` {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if string(lines[1].Message) != `{"n":2}` {
		t.Errorf("unexpected second line %+v", lines[1])
	}
}

func TestTransport_PublishInvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	if err := tr.Publish(context.Background(), "t", "s", []byte("not json")); err == nil {
		t.Fatal("expected error")
	}
	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got %q", buf.String())
	}
}

func TestTransport_PublishCanceled(t *testing.T) {
	tr := New(&bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Publish(ctx, "t", "s", []byte("{}")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
