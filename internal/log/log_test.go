package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelInfo})

	logger.Info("hello", "key", "value")

	got := buf.String()
	if !strings.Contains(got, "hello") {
		t.Errorf("log output = %q, want substring %q", got, "hello")
	}
	if !strings.Contains(got, "key=value") {
		t.Errorf("log output = %q, want substring %q", got, "key=value")
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{JSON: true})

	logger.Info("hello")

	got := buf.String()
	if !strings.Contains(got, `"msg":"hello"`) {
		t.Errorf("log output = %q, want JSON with msg field", got)
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, Config{Level: slog.LevelWarn})

	logger.Info("suppressed")
	logger.Warn("emitted")

	got := buf.String()
	if strings.Contains(got, "suppressed") {
		t.Errorf("log output = %q, info record should be filtered", got)
	}
	if !strings.Contains(got, "emitted") {
		t.Errorf("log output = %q, want warn record", got)
	}
}

func TestNewNop_DiscardsOutput(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("d")
	logger.Info("i")
	logger.Error("e")
}
