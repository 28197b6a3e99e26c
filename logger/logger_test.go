package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(buf, &Config{Level: level, Format: FormatJSON}, "restkit")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "debug")
	l.Debug("chunk", Fields(FieldTransferredBytes, 42))

	m := decodeLine(t, &buf)
	if m["message"] != "chunk" {
		t.Errorf("unexpected message %v", m["message"])
	}
	if m[FieldService] != "restkit" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
	if m[FieldTransferredBytes] != float64(42) {
		t.Errorf("expected transferred_bytes 42, got %v", m[FieldTransferredBytes])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn message, got %q", buf.String())
	}
	if l.Enabled("debug") {
		t.Error("debug should not be enabled at warn level")
	}
	if !l.Enabled("error") {
		t.Error("error should be enabled at warn level")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Info("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatal("expected info level fallback")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("LOG_FORMAT", "json")
	defer os.Unsetenv("LOG_LEVEL")
	defer os.Unsetenv("LOG_FORMAT")

	if l := NewFromEnv("env-svc"); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").
		WithComponent("transfer").
		WithFields(Fields(FieldCodec, "json")).
		WithError(errors.New("boom"))
	if l.service != "restkit" {
		t.Errorf("service should be preserved, got %q", l.service)
	}
	l.Info("done")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "transfer" || m[FieldCodec] != "json" || m[FieldError] != "boom" {
		t.Errorf("missing fields in %v", m)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")
	if l.WithContext(context.Background()) != l {
		t.Error("expected same logger without a request id")
	}

	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	l.WithContext(ctx).Info("call")
	if m := decodeLine(t, &buf); m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id field, got %v", m)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("ignored", Fields("k", "v"))
	if l.Enabled("error") {
		t.Error("nop logger should have nothing enabled")
	}
}

func TestGlobalLogger(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}

	custom := Nop()
	SetGlobalLogger(custom)
	if GetGlobalLogger() != custom {
		t.Error("expected custom global logger")
	}

	Init(Config{Level: "info", Format: FormatJSON})
	if GetGlobalLogger() == custom {
		t.Error("Init should replace the global logger")
	}
}

func TestRegistry(t *testing.T) {
	l := Nop()
	Register("codec", l)
	if Get("codec") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestFields(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("unexpected fields %v", f)
	}

	total := int64(10)
	tf := TransferFields(4, &total)
	if tf[FieldTransferredBytes] != int64(4) || tf[FieldTotalBytes] != int64(10) {
		t.Errorf("unexpected transfer fields %v", tf)
	}
	if _, ok := TransferFields(4, nil)[FieldTotalBytes]; ok {
		t.Error("total_bytes should be omitted when unknown")
	}

	d := DurationFields("save", 1500*time.Millisecond)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration %v", d[FieldDuration])
	}

	e := ErrorFields("save", errors.New("x"))
	if e[FieldError] != "x" {
		t.Errorf("unexpected error field %v", e)
	}

	m := Merge(Fields("a", 1), Fields("a", 2, "b", 3))
	if m["a"] != 2 || m["b"] != 3 {
		t.Errorf("unexpected merge %v", m)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
}
