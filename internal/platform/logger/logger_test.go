package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	for _, format := range []string{"json", "console", ""} {
		l, err := Init("debug", format)
		if err != nil {
			t.Fatalf("format %q: unexpected error: %v", format, err)
		}
		if L() != l {
			t.Fatalf("format %q: global logger not replaced", format)
		}
	}
}

func TestInitRejectsBadInput(t *testing.T) {
	if _, err := Init("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := Init("info", "xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
