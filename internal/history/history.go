package history

import (
	"context"
	"time"

	"github.com/loykin/fmonctl/internal/telemetry"
)

// Event is one classified log event prepared for export to an external
// store. Day is the YYYY-MM-DD bucket the event falls into; it is empty when
// the source line carried no parsable timestamp prefix.
type Event struct {
	Kind       telemetry.EventKind `json:"kind"`
	OccurredAt time.Time           `json:"occurred_at"`
	Day        string              `json:"day,omitempty"`
	Raw        string              `json:"raw"`
}

// FromLine converts one raw log line into an exportable event.
func FromLine(line string) Event {
	ev := telemetry.ParseEvent(line)
	e := Event{Kind: ev.Kind, OccurredAt: ev.Timestamp, Raw: ev.Raw}
	if !ev.Timestamp.IsZero() {
		e.Day = ev.Timestamp.Format("2006-01-02")
	}
	return e
}

// Sink is a destination for archived events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
