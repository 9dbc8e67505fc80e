package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	workerStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmonctl",
			Subsystem: "supervisor",
			Name:      "worker_starts_total",
			Help:      "Number of successful worker launches.",
		}, []string{"kind"},
	)
	workerStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fmonctl",
			Subsystem: "supervisor",
			Name:      "worker_stops_total",
			Help:      "Number of confirmed worker stops.",
		},
	)
	staleRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fmonctl",
			Subsystem: "supervisor",
			Name:      "stale_records_repaired_total",
			Help:      "Number of stale worker records removed during reconciliation.",
		},
	)
	controlRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fmonctl",
			Subsystem: "control",
			Name:      "requests_total",
			Help:      "Control channel requests by outcome (ok, unreachable, protocol_error).",
		}, []string{"outcome"},
	)
	logEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fmonctl",
			Subsystem: "telemetry",
			Name:      "log_events",
			Help:      "Events counted in the worker event log at the last stats pass, by kind.",
		}, []string{"kind"},
	)
	snapshotUptime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fmonctl",
			Subsystem: "worker",
			Name:      "snapshot_uptime_seconds",
			Help:      "Uptime reported by the worker snapshot file, per worker kind.",
		}, []string{"kind"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{workerStarts, workerStops, staleRepairs, controlRequests, logEvents, snapshotUptime}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers against the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncWorkerStart(kind string) {
	if regOK.Load() {
		workerStarts.WithLabelValues(kind).Inc()
	}
}

func IncWorkerStop() {
	if regOK.Load() {
		workerStops.Inc()
	}
}

func IncStaleRepaired() {
	if regOK.Load() {
		staleRepairs.Inc()
	}
}

func IncControlRequest(outcome string) {
	if regOK.Load() {
		controlRequests.WithLabelValues(outcome).Inc()
	}
}

func SetLogEvents(kind string, n int64) {
	if regOK.Load() {
		logEvents.WithLabelValues(kind).Set(float64(n))
	}
}

func SetSnapshotUptime(kind string, seconds int64) {
	if regOK.Load() {
		snapshotUptime.WithLabelValues(kind).Set(float64(seconds))
	}
}
