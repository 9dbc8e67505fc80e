package fmonctl

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/fmonctl/internal/config"
	"github.com/loykin/fmonctl/internal/control"
	"github.com/loykin/fmonctl/internal/detector"
	"github.com/loykin/fmonctl/internal/history"
	"github.com/loykin/fmonctl/internal/history/factory"
	"github.com/loykin/fmonctl/internal/logger"
	"github.com/loykin/fmonctl/internal/metrics"
	iapi "github.com/loykin/fmonctl/internal/server"
	"github.com/loykin/fmonctl/internal/status"
	"github.com/loykin/fmonctl/internal/supervisor"
	"github.com/loykin/fmonctl/internal/telemetry"
	"github.com/loykin/fmonctl/internal/worker"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Paths = cfg.Paths

type Config = cfg.Config

type Kind = worker.Kind

const (
	KindStandard = worker.KindStandard
	KindAdvanced = worker.KindAdvanced
	KindEnhanced = worker.KindEnhanced
)

type LaunchSpec = worker.LaunchSpec

type Snapshot = worker.Snapshot

type Record = supervisor.Record

type Report = status.Report

type Stats = telemetry.Stats

type Event = telemetry.Event

type EventKind = telemetry.EventKind

type Detector = detector.Detector

type HistoryEvent = history.Event

type HistorySink = history.Sink

// Sentinel errors surfaced by Supervisor operations.
var (
	ErrAlreadyRunning = supervisor.ErrAlreadyRunning
	ErrNotRunning     = supervisor.ErrNotRunning
	ErrStaleRecord    = supervisor.ErrStaleRecord
	ErrLaunchFailed   = supervisor.ErrLaunchFailed
	ErrPathNotFound   = supervisor.ErrPathNotFound
	ErrUnreachable    = control.ErrUnreachable
)

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

func NewSupervisor(paths Paths) *Supervisor {
	p := paths.Normalize()
	return &Supervisor{inner: supervisor.New(supervisor.Options{
		RecordPath: p.PIDFile,
		BuildDir:   p.BuildDir,
	})}
}

func (s *Supervisor) Start(ctx context.Context, spec LaunchSpec) (*Record, error) {
	return s.inner.Start(ctx, spec)
}
func (s *Supervisor) Stop() error            { return s.inner.Stop() }
func (s *Supervisor) IsRunning() (bool, int) { return s.inner.IsRunning() }

// Client speaks the worker control channel.
type Client = control.Client

func NewClient(socketPath string, timeout time.Duration) *Client {
	return control.NewClient(socketPath, timeout)
}

// Aggregator merges every status source into one report.
type Aggregator struct{ inner *status.Aggregator }

func NewAggregator(paths Paths, sup *Supervisor, client *Client) *Aggregator {
	p := paths.Normalize()
	var innerSup *supervisor.Supervisor
	if sup != nil {
		innerSup = sup.inner
	}
	return &Aggregator{inner: status.NewAggregator(status.Options{
		Supervisor: innerSup,
		Client:     client,
		DataDir:    p.DataDir,
	})}
}

func (a *Aggregator) Aggregate(ctx context.Context) *Report { return a.inner.Aggregate(ctx) }

// Telemetry helpers over the worker event log.

func ComputeStats(path string) (Stats, error) { return telemetry.ComputeStats(path) }

func SearchLog(path, query string, limit int) ([]string, error) {
	return telemetry.Search(path, query, limit)
}

func FollowLog(ctx context.Context, path string, interval time.Duration) (<-chan string, error) {
	return telemetry.Follow(ctx, path, interval)
}

func ClassifyLine(line string) EventKind { return telemetry.Classify(line) }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewLogger builds the colored slog logger used by the CLI.
var NewLogger = logger.New

// NewHistorySink creates an archive sink from a DSN.
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// ArchiveLog exports the event log at path into sink.
func ArchiveLog(ctx context.Context, sink HistorySink, path string) (int64, error) {
	return history.Archive(ctx, sink, path)
}

func newRouter(basePath string, paths Paths, kind Kind, serveMetrics bool) *iapi.Router {
	p := paths.Normalize()
	sup := NewSupervisor(p)
	client := NewClient(p.Socket, control.DefaultTimeout)
	agg := status.NewAggregator(status.Options{
		Supervisor: sup.inner,
		Client:     client,
		DataDir:    p.DataDir,
	})
	return iapi.NewRouter(agg, p.DataDir, basePath, kind, serveMetrics)
}

// NewHTTPHandler returns the status/telemetry API as a mountable handler.
func NewHTTPHandler(basePath string, paths Paths, kind Kind, serveMetrics bool) http.Handler {
	return newRouter(basePath, paths, kind, serveMetrics).Handler()
}

// NewHTTPServer starts an HTTP server exposing status and log telemetry.
func NewHTTPServer(addr, basePath string, paths Paths, kind Kind, serveMetrics bool) *http.Server {
	return iapi.NewServer(addr, newRouter(basePath, paths, kind, serveMetrics))
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It runs in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
