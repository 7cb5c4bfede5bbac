package flightrecorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

// Only one flight recorder may be active at a time so these tests don't run in parallel.

func TestRecorder_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "traces")
	recorder, err := flightrecorder.New(flightrecorder.Config{
		Logger:   testhelpers.NewLogger(testhelpers.NewWriter(t)),
		Dir:      dir,
		MinAge:   0,
		MaxBytes: 0,
		Cooldown: time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := t.Context()
	if err = recorder.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer recorder.Stop(ctx)

	path, ok := recorder.Capture(ctx, "timeout")
	if !ok {
		t.Fatal("expected first capture to succeed")
	}
	if name := filepath.Base(path); !strings.HasPrefix(name, "timeout-") || !strings.HasSuffix(name, ".trace") {
		t.Errorf("unexpected trace file name %q", name)
	}
	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat trace: %v", err)
	}
	if stat.Size() == 0 {
		t.Error("trace file is empty")
	}

	if _, ok = recorder.Capture(ctx, "timeout"); ok {
		t.Error("expected capture during cooldown to be skipped")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read trace directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d trace files, want 1", len(entries))
	}
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := flightrecorder.New(flightrecorder.Config{
		Logger:   testhelpers.NewLogger(testhelpers.NewWriter(t)),
		Dir:      "",
		MinAge:   0,
		MaxBytes: 0,
		Cooldown: 0,
	})
	if err == nil {
		t.Error("expected error without directory")
	}
}
