package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFollowStreamsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	if err := os.WriteFile(path, []byte("historic line\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Follow(ctx, path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	defer func() { _ = f.Close() }()
	want := []string{
		"[2024-01-01 10:00:00] Created: /tmp/a",
		"[2024-01-01 10:00:01] Deleted: /tmp/a",
	}
	for _, line := range want {
		if _, err := f.WriteString(line + "\n"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("line %d = %q, want %q", i, got, w)
			}
			if got == "historic line" {
				t.Fatal("historical content replayed")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for line %d", i)
		}
	}
}

func TestFollowCancellationClosesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Follow(ctx, path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestFollowMissingFile(t *testing.T) {
	_, err := Follow(context.Background(), filepath.Join(t.TempDir(), "absent.log"), 0)
	if err == nil {
		t.Fatal("expected error for missing log")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFollowEndsOnUnreadableTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A directory opens and seeks, but every read fails. The stream must end
	// instead of retrying forever.
	ch, err := Follow(ctx, t.TempDir(), 10*time.Millisecond)
	if err != nil {
		return
	}
	select {
	case line, open := <-ch:
		if open {
			t.Fatalf("unexpected line %q from a directory", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on persistent read error")
	}
}

func TestFollowPartialLineHeldBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := Follow(ctx, path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString("partial"); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case got := <-ch:
		t.Fatalf("incomplete line delivered: %q", got)
	case <-time.After(100 * time.Millisecond):
	}

	if _, err := f.WriteString(" done\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case got := <-ch:
		if got != "partial done" {
			t.Fatalf("line = %q, want %q", got, "partial done")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completed line never delivered")
	}
}
