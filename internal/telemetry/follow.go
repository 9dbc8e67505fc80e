package telemetry

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"
)

// DefaultFollowInterval is the poll cadence between reads at end of file.
const DefaultFollowInterval = 100 * time.Millisecond

// Follow streams lines appended to the log at path, starting at the current
// end of file. Historical content is never replayed. The returned channel is
// closed when ctx is cancelled; interval <= 0 applies DefaultFollowInterval.
//
// Polling is cooperative: at end of file the goroutine sleeps one interval
// and retries, so shutdown latency is bounded by the interval.
func Follow(ctx context.Context, path string, interval time.Duration) (<-chan string, error) {
	if interval <= 0 {
		interval = DefaultFollowInterval
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		_ = f.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer func() { _ = f.Close() }()

		r := bufio.NewReader(f)
		var pending string
		for {
			chunk, err := r.ReadString('\n')
			if chunk != "" {
				pending += chunk
			}
			if err != nil {
				// Only end of file is retried. Any other read error is
				// persistent for a regular file, so the stream ends.
				if !errors.Is(err, io.EOF) {
					return
				}
				// A partial line stays pending until the writer completes it.
				select {
				case <-ctx.Done():
					return
				case <-time.After(interval):
				}
				continue
			}
			line := pending[:len(pending)-1]
			pending = ""
			select {
			case <-ctx.Done():
				return
			case out <- line:
			}
		}
	}()
	return out, nil
}
