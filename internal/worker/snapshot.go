package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Snapshot is a worker-emitted status document. Beyond the uptime every field
// is a named metric whose set differs per worker kind, so the document is kept
// generic: numbers in Metrics, everything else in Labels.
type Snapshot struct {
	UptimeSeconds int64              `json:"uptime_seconds"`
	Metrics       map[string]float64 `json:"metrics"`
	Labels        map[string]string  `json:"labels,omitempty"`
}

// Running reports the worker's own liveness claim: a snapshot with zero
// uptime is the defined "not actually running" signal. File modification
// time is deliberately not consulted; the worker may be slow to flush.
func (s *Snapshot) Running() bool { return s != nil && s.UptimeSeconds > 0 }

// MetricNames returns the metric keys in stable order.
func (s *Snapshot) MetricNames() []string {
	names := make([]string, 0, len(s.Metrics))
	for k := range s.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// uptimeKey maps each kind to the key its snapshot schema stores uptime under.
func (k Kind) uptimeKey() string {
	if k == KindAdvanced {
		return "uptime"
	}
	return "uptime_seconds"
}

// ReadSnapshot decodes the snapshot file for this kind under dataDir.
// A missing file returns (nil, nil): absence is a normal "no telemetry" state,
// not an error. A file that exists but does not decode is an error.
func (k Kind) ReadSnapshot(dataDir string) (*Snapshot, error) {
	path := k.SnapshotFile(dataDir)
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	snap := &Snapshot{
		Metrics: make(map[string]float64),
		Labels:  make(map[string]string),
	}
	for key, val := range raw {
		switch v := val.(type) {
		case float64:
			snap.Metrics[key] = v
		case string:
			snap.Labels[key] = v
		case bool:
			if v {
				snap.Metrics[key] = 1
			} else {
				snap.Metrics[key] = 0
			}
		}
	}
	if up, ok := snap.Metrics[k.uptimeKey()]; ok {
		snap.UptimeSeconds = int64(up)
	}
	return snap, nil
}
