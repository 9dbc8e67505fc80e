package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/loykin/fmonctl/internal/control"
	"github.com/loykin/fmonctl/internal/detector"
	"github.com/loykin/fmonctl/internal/metrics"
	"github.com/loykin/fmonctl/internal/supervisor"
	"github.com/loykin/fmonctl/internal/worker"
)

// PIDStatus reports the supervisor record view of the worker.
// DetectedBy names the probe that confirmed liveness when the record file
// itself did not ("record" normally, a detector description otherwise).
type PIDStatus struct {
	Running    bool   `json:"running"`
	PID        int    `json:"pid,omitempty"`
	DetectedBy string `json:"detected_by,omitempty"`
}

// ChannelStatus reports whether the control channel answers right now.
type ChannelStatus struct {
	Reachable bool `json:"reachable"`
}

// SnapshotStatus carries one worker kind's self-reported state. Err holds a
// human-readable reason when the snapshot exists but could not be read.
type SnapshotStatus struct {
	Kind    worker.Kind      `json:"kind"`
	Present bool             `json:"present"`
	Running bool             `json:"running"`
	Err     string           `json:"error,omitempty"`
	Data    *worker.Snapshot `json:"data,omitempty"`
}

// Report is the merged view across all sources. Each section degrades
// independently; a Report is always produced.
type Report struct {
	Time      time.Time        `json:"time"`
	PID       PIDStatus        `json:"pid"`
	Channel   ChannelStatus    `json:"channel"`
	Snapshots []SnapshotStatus `json:"snapshots"`
}

// Running is the aggregate verdict: any source seeing a live worker wins.
func (r *Report) Running() bool {
	if r.PID.Running || r.Channel.Reachable {
		return true
	}
	for _, s := range r.Snapshots {
		if s.Running {
			return true
		}
	}
	return false
}

// Aggregator merges the supervisor record, the control channel and the
// per-kind snapshot files into one report. Sources are independent and a
// failing source degrades to its zero section instead of failing the whole.
type Aggregator struct {
	sup       *supervisor.Supervisor
	ctl       *control.Client
	dataDir   string
	kinds     []worker.Kind
	detectors []detector.Detector
	logger    *slog.Logger
}

type Options struct {
	Supervisor *supervisor.Supervisor
	Client     *control.Client
	DataDir    string
	Kinds      []worker.Kind
	// Detectors are auxiliary liveness probes consulted when the record file
	// reports no live worker.
	Detectors []detector.Detector
	Logger    *slog.Logger
}

func NewAggregator(o Options) *Aggregator {
	kinds := o.Kinds
	if len(kinds) == 0 {
		kinds = worker.Kinds()
	}
	lg := o.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Aggregator{
		sup:       o.Supervisor,
		ctl:       o.Client,
		dataDir:   o.DataDir,
		kinds:     kinds,
		detectors: o.Detectors,
		logger:    lg,
	}
}

// Aggregate consults every source and never returns an error; partial
// information is the normal output of this operation.
func (a *Aggregator) Aggregate(ctx context.Context) *Report {
	rep := &Report{Time: time.Now()}

	if a.sup != nil {
		if running, pid := a.sup.IsRunning(); running {
			rep.PID = PIDStatus{Running: true, PID: pid, DetectedBy: "record"}
		}
	}
	if !rep.PID.Running {
		for _, d := range a.detectors {
			alive, err := d.Alive()
			if err != nil {
				a.logger.Debug("detector probe failed", "detector", d.Describe(), "error", err)
				continue
			}
			if alive {
				rep.PID = PIDStatus{Running: true, DetectedBy: d.Describe()}
				break
			}
		}
	}

	if a.ctl != nil {
		rep.Channel.Reachable = a.ctl.Ping(ctx)
	}

	for _, k := range a.kinds {
		st := SnapshotStatus{Kind: k}
		snap, err := k.ReadSnapshot(a.dataDir)
		switch {
		case err != nil:
			st.Present = true
			st.Err = err.Error()
			a.logger.Debug("snapshot unreadable", "kind", string(k), "error", err)
		case snap != nil:
			st.Present = true
			st.Running = snap.Running()
			st.Data = snap
			metrics.SetSnapshotUptime(string(k), snap.UptimeSeconds)
		}
		rep.Snapshots = append(rep.Snapshots, st)
	}
	return rep
}
