package logging_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/myrjola/fitplan/internal/logging"
)

func TestWithAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, slog.LevelDebug)

	parent := logging.WithAttrs(t.Context(), slog.String("trace_id", "abc"))
	first := logging.WithAttrs(parent, slog.Int("user_id", 1))
	second := logging.WithAttrs(parent, slog.Int("user_id", 2))

	logger.LogAttrs(first, slog.LevelInfo, "first")
	logger.LogAttrs(second, slog.LevelInfo, "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "trace_id=abc") || !strings.Contains(lines[0], "user_id=1") {
		t.Errorf("first line missing context attributes: %s", lines[0])
	}
	if strings.Contains(lines[1], "user_id=1") || !strings.Contains(lines[1], "user_id=2") {
		t.Errorf("second line leaked sibling attributes: %s", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
