package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/loykin/fmonctl/internal/config"
	"github.com/loykin/fmonctl/internal/control"
	"github.com/loykin/fmonctl/internal/detector"
	"github.com/loykin/fmonctl/internal/history"
	"github.com/loykin/fmonctl/internal/history/factory"
	"github.com/loykin/fmonctl/internal/logger"
	"github.com/loykin/fmonctl/internal/metrics"
	"github.com/loykin/fmonctl/internal/server"
	"github.com/loykin/fmonctl/internal/status"
	"github.com/loykin/fmonctl/internal/supervisor"
	"github.com/loykin/fmonctl/internal/telemetry"
	"github.com/loykin/fmonctl/internal/worker"
)

// command holds method-style handlers bound to the global flags.
type command struct {
	flags *GlobalFlags
}

// runtime is the per-invocation wiring built from the resolved config.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	sup    *supervisor.Supervisor
	ctl    *control.Client
}

func (c command) setup() (*runtime, error) {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.flags.DataDir != "" {
		cfg.Paths = config.Paths{DataDir: c.flags.DataDir, Socket: cfg.Paths.Socket}.Normalize()
	}
	level := cfg.Log.Level
	if c.flags.LogLevel != "" {
		level = c.flags.LogLevel
	}
	lg := logger.New(level, cfg.Log.Color && !c.flags.NoColor)

	sup := supervisor.New(supervisor.Options{
		RecordPath: cfg.Paths.PIDFile,
		BuildDir:   cfg.Paths.BuildDir,
		Logger:     lg,
	})
	ctl := control.NewClient(cfg.Paths.Socket, control.DefaultTimeout)
	return &runtime{cfg: cfg, logger: lg, sup: sup, ctl: ctl}, nil
}

// aggregator builds the status aggregator over this runtime's sources.
// A command-based probe backs up the record file for workers started outside
// the supervisor.
func (rt *runtime) aggregator() *status.Aggregator {
	probe := &detector.CommandDetector{
		Command: fmt.Sprintf("pgrep -f %s >/dev/null", rt.cfg.Kind.Executable(rt.cfg.Paths.BuildDir)),
	}
	return status.NewAggregator(status.Options{
		Supervisor: rt.sup,
		Client:     rt.ctl,
		DataDir:    rt.cfg.Paths.DataDir,
		Detectors:  []detector.Detector{probe},
		Logger:     rt.logger,
	})
}

func (rt *runtime) eventLog(kindFlag string) (string, error) {
	kind, err := parseKindFlag(kindFlag, rt.cfg.Kind)
	if err != nil {
		return "", err
	}
	return kind.EventLog(rt.cfg.Paths.DataDir), nil
}

// Start launches a worker, asking before replacing a live one unless --force.
func (c command) Start(f StartFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	kind, err := parseKindFlag(f.Kind, rt.cfg.Kind)
	if err != nil {
		return err
	}
	spec := worker.LaunchSpec{
		Kind:       kind,
		Dir:        f.Dir,
		ConfigFile: firstNonEmpty(f.WorkerConfig, rt.cfg.WorkerConfig),
		Detached:   f.Detach,
	}
	if f.Capture && !f.Detach {
		out, errW := rt.cfg.Rotation.Writers(rt.cfg.Paths.DataDir, "worker")
		defer func() { _ = out.Close() }()
		defer func() { _ = errW.Close() }()
		spec.Stdout, spec.Stderr = out, errW
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rec, err := rt.sup.Start(ctx, spec)
	if errors.Is(err, supervisor.ErrAlreadyRunning) {
		if !f.Force && !confirm(os.Stdin, fmt.Sprintf("%v. Restart?", err)) {
			fmt.Println("aborted")
			return nil
		}
		if stopErr := rt.sup.Stop(); stopErr != nil &&
			!errors.Is(stopErr, supervisor.ErrNotRunning) && !errors.Is(stopErr, supervisor.ErrStaleRecord) {
			return stopErr
		}
		rec, err = rt.sup.Start(ctx, spec)
	}
	if err != nil {
		return err
	}
	if f.Detach {
		fmt.Printf("%s started (pid %d)\n", kind.DisplayName(), rec.PID)
	}
	return nil
}

// Stop terminates the supervised worker. A missing or stale record is not a
// failure; the command reports and leaves a clean state behind.
func (c command) Stop() error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	err = rt.sup.Stop()
	switch {
	case errors.Is(err, supervisor.ErrNotRunning):
		fmt.Println("monitor is not running")
		return nil
	case errors.Is(err, supervisor.ErrStaleRecord):
		fmt.Println("removed stale record, no live worker found")
		return nil
	case err != nil:
		return err
	}
	fmt.Println("monitor stopped")
	return nil
}

// Status prints the merged report from every source.
func (c command) Status(f StatusFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), control.DefaultTimeout)
	defer cancel()
	rep := rt.aggregator().Aggregate(ctx)
	if f.JSON {
		printJSON(rep)
		return nil
	}

	verdict := "STOPPED"
	if rep.Running() {
		verdict = "RUNNING"
	}
	fmt.Printf("monitor: %s\n", verdict)
	if rep.PID.Running {
		fmt.Printf("  pid:     %d (via %s)\n", rep.PID.PID, rep.PID.DetectedBy)
	} else {
		fmt.Println("  pid:     no record")
	}
	fmt.Printf("  channel: reachable=%v\n", rep.Channel.Reachable)
	for _, s := range rep.Snapshots {
		switch {
		case s.Err != "":
			fmt.Printf("  %-18s snapshot unreadable: %s\n", s.Kind.DisplayName()+":", s.Err)
		case !s.Present:
			fmt.Printf("  %-18s no snapshot\n", s.Kind.DisplayName()+":")
		default:
			fmt.Printf("  %-18s running=%v uptime=%s\n",
				s.Kind.DisplayName()+":", s.Running, formatUptime(s.Data.UptimeSeconds))
		}
	}
	return nil
}

// LogsShow prints the tail of the event log.
func (c command) LogsShow(f LogsShowFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	path, err := rt.eventLog(f.Kind)
	if err != nil {
		return err
	}
	lines, err := telemetry.TailLines(path, f.Lines)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		fmt.Println("event log is empty")
		return nil
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

// LogsFollow streams appended lines until interrupted.
func (c command) LogsFollow(f LogsFollowFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	path, err := rt.eventLog(f.Kind)
	if err != nil {
		return err
	}
	interval := f.Interval
	if interval <= 0 {
		interval = rt.cfg.FollowInterval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ch, err := telemetry.Follow(ctx, path, interval)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("event log %s does not exist yet", path)
		}
		return err
	}
	for line := range ch {
		fmt.Println(line)
	}
	return nil
}

// LogsStats computes and prints event log statistics.
func (c command) LogsStats(f LogsStatsFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	kind, err := parseKindFlag(f.Kind, rt.cfg.Kind)
	if err != nil {
		return err
	}
	stats, err := telemetry.ComputeStats(kind.EventLog(rt.cfg.Paths.DataDir))
	if err != nil {
		return err
	}
	metrics.SetLogEvents(string(kind), stats.TotalEvents)
	if f.JSON {
		printJSON(stats)
		return nil
	}

	fmt.Printf("total events: %d\n", stats.TotalEvents)
	fmt.Printf("file size:    %s\n", formatBytes(stats.FileSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("last write:   %s\n", stats.LastModified.Format(time.RFC3339))
	}
	if len(stats.ByKind) > 0 {
		fmt.Println("by kind:")
		kinds := make([]string, 0, len(stats.ByKind))
		for k := range stats.ByKind {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Printf("  %-10s %d\n", k, stats.ByKind[telemetry.EventKind(k)])
		}
	}
	if len(stats.ByDay) > 0 {
		fmt.Println("by day:")
		days := make([]string, 0, len(stats.ByDay))
		for d := range stats.ByDay {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			fmt.Printf("  %s %d\n", d, stats.ByDay[d])
		}
	}
	return nil
}

// LogsSearch prints matching lines up to the limit.
func (c command) LogsSearch(query string, f LogsSearchFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	path, err := rt.eventLog(f.Kind)
	if err != nil {
		return err
	}
	matches, err := telemetry.Search(path, query, f.Limit)
	if err != nil {
		return err
	}
	for _, line := range matches {
		fmt.Println(line)
	}
	fmt.Printf("%d match(es)\n", len(matches))
	return nil
}

// LogsClean moves the current log aside and starts a fresh one.
func (c command) LogsClean(f LogsCleanFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	path, err := rt.eventLog(f.Kind)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("nothing to clean")
			return nil
		}
		return err
	}
	if !f.Force && !confirm(os.Stdin, fmt.Sprintf("truncate %s?", path)) {
		fmt.Println("aborted")
		return nil
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	if err := os.Rename(path, backup); err != nil {
		return err
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return err
	}
	fmt.Printf("log moved to %s\n", backup)
	return nil
}

// LogsArchive streams classified events into the configured archive sink.
func (c command) LogsArchive(f LogsArchiveFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	path, err := rt.eventLog(f.Kind)
	if err != nil {
		return err
	}
	dsn := f.DSN
	if dsn == "" && rt.cfg.History != nil {
		dsn = rt.cfg.History.DSN
	}
	if dsn == "" {
		return errors.New("no archive DSN: pass --dsn or set history.dsn in the config")
	}
	sink, err := factory.NewSinkFromDSN(dsn)
	if err != nil {
		return err
	}
	defer func() {
		if closer, ok := sink.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	n, err := history.Archive(ctx, sink, path)
	if err != nil {
		return fmt.Errorf("archived %d event(s) before failure: %w", n, err)
	}
	fmt.Printf("archived %d event(s)\n", n)
	return nil
}

// configView is the stable shape `config show` prints.
type configView struct {
	Paths          config.Paths          `json:"paths"`
	Kind           worker.Kind           `json:"kind"`
	WorkerConfig   string                `json:"worker_config,omitempty"`
	Recursive      bool                  `json:"recursive"`
	Extensions     []string              `json:"extensions,omitempty"`
	FollowInterval string                `json:"follow_interval"`
	Server         *config.ServerConfig  `json:"server,omitempty"`
	Metrics        *config.MetricsConfig `json:"metrics,omitempty"`
	History        *config.HistoryConfig `json:"history,omitempty"`
	Log            config.LogConfig      `json:"log"`
}

// ConfigShow prints the resolved configuration.
func (c command) ConfigShow() error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	printJSON(configView{
		Paths:          rt.cfg.Paths,
		Kind:           rt.cfg.Kind,
		WorkerConfig:   rt.cfg.WorkerConfig,
		Recursive:      rt.cfg.Recursive,
		Extensions:     rt.cfg.Extensions,
		FollowInterval: rt.cfg.FollowInterval.String(),
		Server:         rt.cfg.Server,
		Metrics:        rt.cfg.Metrics,
		History:        rt.cfg.History,
		Log:            rt.cfg.Log,
	})
	return nil
}

// ConfigSet persists worker settings back to the config file.
func (c command) ConfigSet(f ConfigSetFlags) error {
	if c.flags.ConfigPath == "" {
		return errors.New("config set requires --config")
	}
	if f.Kind != "" {
		if _, err := worker.ParseKind(f.Kind); err != nil {
			return err
		}
	}
	err := config.Save(c.flags.ConfigPath, config.WorkerConfig{
		Kind:       f.Kind,
		ConfigFile: f.WorkerFile,
		Recursive:  f.Recursive,
		Extensions: f.Extensions,
	})
	if err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", c.flags.ConfigPath)
	return nil
}

// Perf prints the worker performance snapshots.
func (c command) Perf(f PerfFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	kinds := worker.Kinds()
	if f.Kind != "" {
		k, err := worker.ParseKind(f.Kind)
		if err != nil {
			return err
		}
		kinds = []worker.Kind{k}
	}

	out := make(map[string]*worker.Snapshot)
	for _, k := range kinds {
		snap, err := k.ReadSnapshot(rt.cfg.Paths.DataDir)
		if err != nil {
			rt.logger.Warn("snapshot unreadable", "kind", string(k), "error", err)
			continue
		}
		if snap != nil {
			out[string(k)] = snap
		}
	}
	if f.JSON {
		printJSON(out)
		return nil
	}
	if len(out) == 0 {
		fmt.Println("no performance snapshots found")
		return nil
	}
	for _, k := range kinds {
		snap, ok := out[string(k)]
		if !ok {
			continue
		}
		fmt.Printf("%s (uptime %s)\n", k.DisplayName(), formatUptime(snap.UptimeSeconds))
		for _, name := range snap.MetricNames() {
			fmt.Printf("  %-24s %g\n", name, snap.Metrics[name])
		}
		for k2, v := range snap.Labels {
			fmt.Printf("  %-24s %s\n", k2, v)
		}
	}
	return nil
}

// Serve runs the HTTP server until interrupted.
func (c command) Serve(f ServeFlags) error {
	rt, err := c.setup()
	if err != nil {
		return err
	}
	serveMetrics := !f.NoMetrics
	if rt.cfg.Metrics != nil && !rt.cfg.Metrics.Enabled {
		serveMetrics = false
	}
	if serveMetrics {
		if err := metrics.RegisterDefault(); err != nil {
			return err
		}
	}

	listen := f.Listen
	basePath := f.BasePath
	if rt.cfg.Server != nil {
		if listen == "" {
			listen = rt.cfg.Server.Listen
		}
		if basePath == "" {
			basePath = rt.cfg.Server.BasePath
		}
	}
	if listen == "" {
		listen = ":8080"
	}

	router := server.NewRouter(rt.aggregator(), rt.cfg.Paths.DataDir, basePath, rt.cfg.Kind, serveMetrics)
	srv := server.NewServer(listen, router)
	rt.logger.Info("http server started", "listen", listen, "base_path", basePath, "metrics", serveMetrics)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return srv.Close()
	}
	rt.logger.Info("http server stopped")
	return nil
}
