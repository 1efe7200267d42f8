package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestWithOperation(t *testing.T) {
	ctx := WithOperation(context.Background(), "01hx-op")
	if got := OperationFromContext(ctx); got != "01hx-op" {
		t.Errorf("OperationFromContext() = %q, want %q", got, "01hx-op")
	}
	if got := OperationFromContext(context.Background()); got != "" {
		t.Errorf("OperationFromContext() = %q, want empty string", got)
	}
}

func TestL_WithOperation(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithOperation(WithLogger(context.Background(), l), "op-1")
	L(ctx).Info("test message")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if op, ok := logEntry["op"].(string); !ok || op != "op-1" {
		t.Errorf("Expected op='op-1', got %v", logEntry["op"])
	}
}

func TestL_NoOperation(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	L(WithLogger(context.Background(), l)).Info("test message")

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	if _, ok := logEntry["op"]; ok {
		t.Error("Should not have op when not set")
	}
}
