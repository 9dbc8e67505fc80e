package telemetry

import (
	"bufio"
	"os"
	"time"
)

// Stats is a pure fold over the event log, recomputed on demand and never
// cached across calls.
type Stats struct {
	TotalEvents  int64               `json:"total_events"`
	ByKind       map[EventKind]int64 `json:"counts_by_kind"`
	ByDay        map[string]int64    `json:"counts_by_day"`
	FileSize     int64               `json:"file_size"`
	LastModified time.Time           `json:"last_modified"`
}

// ComputeStats makes a single sequential pass over the log at path.
// A missing log yields empty stats; per-line anomalies are skipped silently,
// a single malformed line must never abort the rest of the file.
func ComputeStats(path string) (Stats, error) {
	stats := Stats{
		ByKind: make(map[EventKind]int64),
		ByDay:  make(map[string]int64),
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, err
	}
	defer func() { _ = f.Close() }()

	if fi, err := f.Stat(); err == nil {
		stats.FileSize = fi.Size()
		stats.LastModified = fi.ModTime()
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		stats.TotalEvents++
		if kind := Classify(line); kind != KindUnknown {
			stats.ByKind[kind]++
		}
		if day, ok := dayBucket(line); ok {
			stats.ByDay[day]++
		}
	}
	return stats, sc.Err()
}
