package notifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileSourceEmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brightness")
	if err := os.WriteFile(path, []byte("10\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := NewFileSource(path).Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	if err := os.WriteFile(path, []byte("20\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("no event after write")
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestFileSourceMissingPath(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope")).Events(context.Background())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLineSourceFiltersLines(t *testing.T) {
	src := NewLineSource("sh", "-c", "printf 'a\\n\\nskip\\nb\\n'")
	src.Match = func(line string) bool { return line != "skip" }

	events, err := src.Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	n := 0
	for range events {
		n++
	}
	if n != 2 {
		t.Fatalf("events = %d, want 2", n)
	}
}
