package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/loykin/fmonctl/internal/detector"
	"github.com/loykin/fmonctl/internal/metrics"
	"github.com/loykin/fmonctl/internal/worker"
)

// Options configures a Supervisor. All paths come from the caller; the
// package holds no global state.
type Options struct {
	RecordPath string // worker record file
	BuildDir   string // directory with the worker executables
	Logger     *slog.Logger
}

// Supervisor owns the worker record file and the worker lifecycle around it.
// It holds no in-memory state between calls; the record file is the only
// synchronization point, and it is advisory, not an exclusive lock.
type Supervisor struct {
	recordPath string
	buildDir   string
	logger     *slog.Logger
}

func New(o Options) *Supervisor {
	lg := o.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Supervisor{recordPath: o.RecordPath, buildDir: o.BuildDir, logger: lg}
}

// RecordPath exposes the record file location for status rendering.
func (s *Supervisor) RecordPath() string { return s.recordPath }

// Start launches the worker described by spec.
//
// Detached: returns as soon as the worker is spawned and its record
// persisted. Foreground: blocks until the worker exits or ctx is cancelled;
// on cancellation the worker receives SIGTERM and is awaited.
//
// The already-running check is read-then-act and can race with a concurrent
// Start; the record is advisory and the weaker guarantee is deliberate.
func (s *Supervisor) Start(ctx context.Context, spec worker.LaunchSpec) (*Record, error) {
	if _, err := os.Stat(spec.Dir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, spec.Dir)
	}
	if running, pid := s.IsRunning(); running {
		return nil, fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	exe := spec.Kind.Executable(s.buildDir)
	if _, err := os.Stat(exe); err != nil {
		return nil, fmt.Errorf("%w: %s not found, build the workers first", ErrLaunchFailed, exe)
	}

	cmd := spec.Command(s.buildDir)
	if spec.Detached {
		// The worker outlives this invocation: new session, output discarded.
		// Its observable state flows through the event log and snapshot file.
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
		}
		defer func() { _ = null.Close() }()
		cmd.Stdout = null
		cmd.Stderr = null
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if spec.Stdout != nil {
			cmd.Stdout = spec.Stdout
		}
		if spec.Stderr != nil {
			cmd.Stderr = spec.Stderr
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}
	rec := Record{PID: cmd.Process.Pid, RecordedAt: time.Now()}
	if err := WriteRecord(s.recordPath, rec); err != nil {
		// The worker is up but unsupervisable; kill it rather than leak it.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("write record %s: %w", s.recordPath, err)
	}
	metrics.IncWorkerStart(string(spec.Kind))
	s.logger.Info("worker started",
		"kind", string(spec.Kind), "pid", rec.PID, "dir", spec.Dir, "detached", spec.Detached)

	if spec.Detached {
		_ = cmd.Process.Release()
		return &rec, nil
	}
	return &rec, s.waitForeground(ctx, cmd, rec)
}

func (s *Supervisor) waitForeground(ctx context.Context, cmd *exec.Cmd, rec Record) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var exitErr error
	select {
	case exitErr = <-done:
	case <-ctx.Done():
		s.logger.Info("interrupt received, stopping worker", "pid", rec.PID)
		_ = syscall.Kill(rec.PID, syscall.SIGTERM)
		exitErr = <-done
	}
	if err := RemoveRecord(s.recordPath); err != nil {
		s.logger.Warn("remove record", "path", s.recordPath, "error", err)
	}
	metrics.IncWorkerStop()
	if exitErr != nil && ctx.Err() == nil {
		return fmt.Errorf("worker exited abnormally: %w", exitErr)
	}
	return nil
}

// Stop terminates the supervised worker gracefully and removes the record.
// A record whose PID is no longer alive self-heals: the record is removed
// and ErrStaleRecord reported so the caller can log rather than fail hard.
func (s *Supervisor) Stop() error {
	rec, err := ReadRecord(s.recordPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotRunning
		}
		// Unparsable record: treat as stale and repair.
		_ = RemoveRecord(s.recordPath)
		metrics.IncStaleRepaired()
		return fmt.Errorf("%w: %v", ErrStaleRecord, err)
	}
	if !detector.Alive(rec.PID) {
		_ = RemoveRecord(s.recordPath)
		metrics.IncStaleRepaired()
		return fmt.Errorf("%w (pid %d)", ErrStaleRecord, rec.PID)
	}
	if err := syscall.Kill(rec.PID, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			_ = RemoveRecord(s.recordPath)
			metrics.IncStaleRepaired()
			return fmt.Errorf("%w (pid %d)", ErrStaleRecord, rec.PID)
		}
		return fmt.Errorf("signal pid %d: %w", rec.PID, err)
	}
	if err := RemoveRecord(s.recordPath); err != nil {
		return err
	}
	metrics.IncWorkerStop()
	s.logger.Info("worker stopped", "pid", rec.PID)
	return nil
}

// IsRunning probes the current record's PID. A dead PID removes the record
// as a side effect so the record can never lie indefinitely; the next call
// observes a clean absent state.
func (s *Supervisor) IsRunning() (bool, int) {
	rec, err := ReadRecord(s.recordPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("repairing unreadable record", "path", s.recordPath, "error", err)
			_ = RemoveRecord(s.recordPath)
			metrics.IncStaleRepaired()
		}
		return false, 0
	}
	if !detector.Alive(rec.PID) {
		s.logger.Debug("repairing stale record", "pid", rec.PID)
		_ = RemoveRecord(s.recordPath)
		metrics.IncStaleRepaired()
		return false, 0
	}
	return true, rec.PID
}
