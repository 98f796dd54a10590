package services

import (
	"errors"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("pipe closed")
	err := Wrap(ErrConnection, "connect", "handshake", "host unreachable", base)

	if !errors.Is(err, ErrConnection) {
		t.Fatalf("expected ErrConnection marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToExternalTool(t *testing.T) {
	err := Wrap(nil, "denoise", "run", "exit status 1", nil)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool default, got %v", err)
	}
}

func TestFatalClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"connection", Wrap(ErrConnection, "connect", "", "", nil), true},
		{"configuration", Wrap(ErrConfiguration, "denoise", "locate executable", "conf missing", nil), true},
		{"validation", Wrap(ErrValidation, "sharpen", "mode", "unsupported", nil), false},
		{"external tool", Wrap(ErrExternalTool, "denoise", "run", "", nil), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fatal(tt.err); got != tt.fatal {
				t.Fatalf("Fatal(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}
