package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lsm/cloudwatch-stdf/internal/awslogs"
	"github.com/lsm/cloudwatch-stdf/internal/config"
	"github.com/lsm/cloudwatch-stdf/internal/publish"
	"github.com/lsm/cloudwatch-stdf/internal/publish/stdout"
	"github.com/lsm/cloudwatch-stdf/internal/stdf"
)

func setSettingsEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvSNSTopic, "alerts")
	t.Setenv(config.EnvMessageTitle, "T")
	t.Setenv(config.EnvMessageDescription, "D")
	t.Setenv(config.EnvSourceAccountNumber, "111")
	t.Setenv(config.EnvSourceRegion, "r1")
	t.Setenv(config.EnvAppName, "App")
	t.Setenv(config.EnvTransport, config.TransportStdout)
}

func encodedEvent(t *testing.T, lines string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RunEncode([]string{"--input", lines, "--timestamp", "100"}, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestHelp(t *testing.T) {
	tests := []struct {
		name string
		run  func([]string, *bytes.Buffer) error
	}{
		{"encode", func(a []string, w *bytes.Buffer) error { return RunEncode(a, w) }},
		{"decode", func(a []string, w *bytes.Buffer) error { return RunDecode(a, w) }},
		{"format", func(a []string, w *bytes.Buffer) error { return RunFormat(a, w) }},
		{"publish", func(a []string, w *bytes.Buffer) error { return RunPublish(context.Background(), a, w) }},
		{"doctor", func(a []string, w *bytes.Buffer) error { return RunDoctor(context.Background(), a, w) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.run([]string{"-h"}, &buf); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), "Usage: stdfctl "+tt.name) {
				t.Errorf("unexpected help output: %s", buf.String())
			}
		})
	}
}

func TestInputRequired(t *testing.T) {
	var buf bytes.Buffer
	if err := RunEncode(nil, &buf); err == nil || !strings.Contains(err.Error(), "--input") {
		t.Errorf("encode: expected --input error, got %v", err)
	}
	if err := RunDecode(nil, &buf); err == nil || !strings.Contains(err.Error(), "--input") {
		t.Errorf("decode: expected --input error, got %v", err)
	}
	if err := RunDecode([]string{"--input"}, &buf); err == nil || !strings.Contains(err.Error(), "requires a value") {
		t.Errorf("decode: expected missing value error, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("first\n\nsecond\r\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var encoded bytes.Buffer
	if err := RunEncode([]string{"--input", path, "--log-group", "/app", "--timestamp", "42"}, &encoded); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded bytes.Buffer
	if err := RunDecode([]string{"--input", strings.TrimSpace(encoded.String())}, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var batch awslogs.Batch
	if err := json.Unmarshal(decoded.Bytes(), &batch); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, decoded.String())
	}
	if batch.LogGroup != "/app" || batch.MessageType != awslogs.MessageTypeData {
		t.Errorf("unexpected batch metadata %+v", batch)
	}
	if len(batch.LogEvents) != 2 {
		t.Fatalf("expected 2 events, got %d", len(batch.LogEvents))
	}
	if batch.LogEvents[0].Message != "first" || batch.LogEvents[1].Message != "second" {
		t.Errorf("unexpected messages %+v", batch.LogEvents)
	}
	if batch.LogEvents[0].Timestamp != 42 || batch.LogEvents[0].ID == batch.LogEvents[1].ID {
		t.Errorf("unexpected ids or timestamps %+v", batch.LogEvents)
	}
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := RunEncode([]string{"--input", "\n\n"}, &buf); err == nil {
		t.Error("expected error for empty input")
	}
	if err := RunEncode([]string{"--input", "x", "--timestamp", "soon"}, &buf); err == nil {
		t.Error("expected error for invalid timestamp")
	}
}

func TestDecode_InvalidPayload(t *testing.T) {
	var buf bytes.Buffer
	err := RunDecode([]string{"--input", `{"awslogs":{"data":"!!!"}}`}, &buf)
	if !errors.Is(err, awslogs.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestFormat(t *testing.T) {
	setSettingsEnv(t)
	event := encodedEvent(t, "m1\nm2")

	var buf bytes.Buffer
	if err := RunFormat([]string{"--input", event, "--compact"}, &buf); err != nil {
		t.Fatalf("format: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 envelopes, got %d:\n%s", len(lines), buf.String())
	}
	env, err := stdf.Unmarshal([]byte(lines[1]))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Payload.RawData != "m2" || env.Payload.Title != "T" || env.Meta.Source.AppName != "App" || env.Meta.Timestamp != 100 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestFormat_MissingConfiguration(t *testing.T) {
	setSettingsEnv(t)
	event := encodedEvent(t, "m1")
	_ = os.Unsetenv(config.EnvAppName)

	var buf bytes.Buffer
	err := RunFormat([]string{"--input", event}, &buf)
	if !errors.Is(err, config.ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}

func TestPublish_Stdout(t *testing.T) {
	setSettingsEnv(t)
	event := encodedEvent(t, "m1\nm2\nm3")

	var buf bytes.Buffer
	if err := RunPublish(context.Background(), []string{"--input", event, "--invocation-id", "inv-1"}, &buf); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var messages []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var line stdout.Line
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("line: %v", err)
		}
		if line.Topic != "alerts" || line.Subject != publish.Subject {
			t.Errorf("unexpected line %+v", line)
		}
		env, err := stdf.Unmarshal(line.Message)
		if err != nil {
			t.Fatalf("envelope: %v", err)
		}
		messages = append(messages, env.Payload.RawData)
	}
	if strings.Join(messages, ",") != "m1,m2,m3" {
		t.Errorf("expected m1,m2,m3 in order, got %v", messages)
	}
}

func TestPublish_UnknownTransport(t *testing.T) {
	setSettingsEnv(t)
	event := encodedEvent(t, "m1")

	var buf bytes.Buffer
	err := RunPublish(context.Background(), []string{"--input", event, "--transport", "carrier-pigeon"}, &buf)
	if err == nil || !strings.Contains(err.Error(), "unsupported transport") {
		t.Fatalf("expected unsupported transport error, got %v", err)
	}
}

func TestDoctor(t *testing.T) {
	setSettingsEnv(t)

	var buf bytes.Buffer
	if err := RunDoctor(context.Background(), nil, &buf); err != nil {
		t.Fatalf("doctor: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "All checks passed.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestDoctor_ReportsMissingKeys(t *testing.T) {
	setSettingsEnv(t)
	_ = os.Unsetenv(config.EnvSourceRegion)
	t.Setenv(config.EnvMessageDescription, "")

	var buf bytes.Buffer
	err := RunDoctor(context.Background(), nil, &buf)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}
	out := buf.String()
	if !strings.Contains(out, "SOURCE_REGION is not set") {
		t.Errorf("expected SOURCE_REGION to be reported:\n%s", out)
	}
	if strings.Contains(out, "MESSAGE_DESCRIPTION") {
		t.Errorf("empty MESSAGE_DESCRIPTION must count as set:\n%s", out)
	}
}
