package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"astropipe/internal/services"
)

func TestConsoleHandlerLiftsStage(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := services.WithStage(context.Background(), "denoise")
	WithContext(ctx, logger).Info("stage started", String("file", "m31.fit"))

	line := buf.String()
	if !strings.Contains(line, "[denoise]") {
		t.Fatalf("expected stage in header, got %q", line)
	}
	if !strings.Contains(line, "file=m31.fit") {
		t.Fatalf("expected file attr, got %q", line)
	}
	if strings.Contains(line, "stage=") {
		t.Fatalf("stage should be lifted out of the attr list, got %q", line)
	}
}

func TestJSONHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("stage skipped", String(FieldEventType, "stage_skip"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if payload["msg"] != "stage skipped" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload[FieldEventType] != "stage_skip" {
		t.Fatalf("unexpected event type: %v", payload[FieldEventType])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Fatalf("warn line missing, got %q", out)
	}
}
