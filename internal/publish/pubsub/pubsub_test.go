package pubsub

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"

	"github.com/lsm/cloudwatch-stdf/internal/correlation"
)

type published struct {
	topic string
	msg   *pubsub.Message
}

type mockPublisher struct {
	calls  []published
	err    error
	closed bool
}

func (m *mockPublisher) Publish(_ context.Context, topicID string, msg *pubsub.Message) (string, error) {
	m.calls = append(m.calls, published{topic: topicID, msg: msg})
	if m.err != nil {
		return "", m.err
	}
	return "server-id-1", nil
}

func (m *mockPublisher) Close() error {
	m.closed = true
	return nil
}

func TestTransport_Publish(t *testing.T) {
	mp := &mockPublisher{}
	tr := newTransport(mp)

	ctx := correlation.WithID(context.Background(), "inv-1")
	if err := tr.Publish(ctx, "stdf-alerts", "stdfMessage", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(mp.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mp.calls))
	}
	call := mp.calls[0]
	if call.topic != "stdf-alerts" {
		t.Errorf("unexpected topic %q", call.topic)
	}
	if string(call.msg.Data) != `{"x":1}` {
		t.Errorf("unexpected data %s", call.msg.Data)
	}
	if call.msg.Attributes[AttrSubject] != "stdfMessage" {
		t.Errorf("expected subject attribute, got %v", call.msg.Attributes)
	}
	if call.msg.Attributes[correlation.HeaderInvocationID] != "inv-1" {
		t.Errorf("expected invocation attribute, got %v", call.msg.Attributes)
	}
}

func TestTransport_PublishError(t *testing.T) {
	boom := errors.New("rpc error: code = NotFound")
	tr := newTransport(&mockPublisher{err: boom})

	if err := tr.Publish(context.Background(), "t", "stdfMessage", []byte("x")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestTransport_Close(t *testing.T) {
	mp := &mockPublisher{}
	tr := newTransport(mp)
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !mp.closed {
		t.Error("expected client to be closed")
	}
}

func TestNew_RequiresProject(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty project id")
	}
}
