package history

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// Archive streams the event log at path into sink, one event per line, and
// returns the number of events exported. The log is read sequentially; a
// sink failure aborts with the count exported so far, so a rerun can be
// judged by the caller. A missing log archives zero events.
func Archive(ctx context.Context, sink Sink, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer func() { _ = f.Close() }()

	var n int64
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := sink.Send(ctx, FromLine(sc.Text())); err != nil {
			return n, fmt.Errorf("archive event %d: %w", n+1, err)
		}
		n++
	}
	return n, sc.Err()
}
