package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/loykin/fmonctl/internal/telemetry"
)

type captureSink struct {
	events []Event
	failAt int // 1-based index to fail on, 0 = never
}

func (s *captureSink) Send(_ context.Context, e Event) error {
	if s.failAt > 0 && len(s.events)+1 >= s.failAt {
		return errors.New("sink down")
	}
	s.events = append(s.events, e)
	return nil
}

func TestFromLine(t *testing.T) {
	e := FromLine("[2024-03-04 05:06:07] Created: /tmp/x")
	if e.Kind != telemetry.KindCreated {
		t.Fatalf("Kind = %s", e.Kind)
	}
	if e.Day != "2024-03-04" {
		t.Fatalf("Day = %s", e.Day)
	}
	if e.OccurredAt.IsZero() {
		t.Fatal("OccurredAt not set")
	}

	e = FromLine("no prefix at all")
	if e.Day != "" || !e.OccurredAt.IsZero() {
		t.Fatalf("event = %+v", e)
	}
	if e.Kind != telemetry.KindUnknown {
		t.Fatalf("Kind = %s", e.Kind)
	}
}

func TestArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	body := "[2024-01-01 10:00:00] Created: /tmp/a\n" +
		"[2024-01-01 10:00:01] Deleted: /tmp/a\n" +
		"[2024-01-02 09:00:00] Modified: /tmp/b\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink := &captureSink{}
	n, err := Archive(context.Background(), sink, path)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if n != 3 || len(sink.events) != 3 {
		t.Fatalf("n = %d, captured = %d", n, len(sink.events))
	}
	if sink.events[0].Kind != telemetry.KindCreated || sink.events[2].Day != "2024-01-02" {
		t.Fatalf("events = %+v", sink.events)
	}
}

func TestArchiveMissingLog(t *testing.T) {
	sink := &captureSink{}
	n, err := Archive(context.Background(), sink, filepath.Join(t.TempDir(), "absent.log"))
	if err != nil || n != 0 {
		t.Fatalf("Archive = %d, %v", n, err)
	}
}

func TestArchiveSinkFailureReportsProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	body := "[2024-01-01 10:00:00] Created: /tmp/a\n" +
		"[2024-01-01 10:00:01] Deleted: /tmp/a\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sink := &captureSink{failAt: 2}
	n, err := Archive(context.Background(), sink, path)
	if err == nil {
		t.Fatal("expected sink failure")
	}
	if n != 1 {
		t.Fatalf("exported before failure = %d, want 1", n)
	}
}

func TestArchiveHonorsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	if err := os.WriteFile(path, []byte("[2024-01-01 10:00:00] Created: /tmp/a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Archive(ctx, &captureSink{}, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("Archive = %v, want context.Canceled", err)
	}
}
