package telemetry

import (
	"strings"
	"time"
)

// EventKind classifies one event log line.
type EventKind string

const (
	KindCreated   EventKind = "created"
	KindDeleted   EventKind = "deleted"
	KindModified  EventKind = "modified"
	KindMoved     EventKind = "moved"
	KindAttribute EventKind = "attribute"
	KindOpened    EventKind = "opened"
	KindClosed    EventKind = "closed"
	KindUnknown   EventKind = "unknown"
)

// markers are evaluated in this fixed order; the first match wins, so a line
// containing several markers classifies deterministically.
var markers = []struct {
	kind  EventKind
	token string
}{
	{KindCreated, "Created:"},
	{KindDeleted, "Deleted:"},
	{KindModified, "Modified:"},
	{KindMoved, "Moved"},
	{KindAttribute, "Attribute changed:"},
	{KindOpened, "Opened:"},
	{KindClosed, "Closed:"},
}

// Classify is line-local and stateless; lines with no recognized marker are
// KindUnknown.
func Classify(line string) EventKind {
	for _, m := range markers {
		if strings.Contains(line, m.token) {
			return m.kind
		}
	}
	return KindUnknown
}

// Event is one classified log line. Derived on the fly, never stored by the
// engine itself.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      EventKind `json:"kind"`
	Raw       string    `json:"raw"`
}

// timestampLayout matches the worker's "[2006-01-02 15:04:05] ..." prefix.
const timestampLayout = "2006-01-02 15:04:05"

// ParseEvent classifies line and extracts the bracketed timestamp prefix when
// present. A missing or malformed prefix leaves Timestamp zero; the event
// still counts.
func ParseEvent(line string) Event {
	ev := Event{Kind: Classify(line), Raw: line}
	if ts, ok := leadingTimestamp(line); ok {
		ev.Timestamp = ts
	}
	return ev
}

func leadingTimestamp(line string) (time.Time, bool) {
	if len(line) < 21 || line[0] != '[' {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, line[1:20], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// dayBucket extracts the YYYY-MM-DD token for daily aggregation.
// The prefix must start with '[' and the date portion must parse; anything
// else silently skips the bucket only.
func dayBucket(line string) (string, bool) {
	if len(line) < 11 || line[0] != '[' {
		return "", false
	}
	day := line[1:11]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return "", false
	}
	return day, true
}
