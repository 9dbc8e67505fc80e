package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for captured worker output.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// New builds the control plane's own slog logger.
// Color output goes through ColorTextHandler; otherwise a plain TextHandler.
func New(level string, color bool) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lv}
	if color {
		return slog.New(NewColorTextHandler(os.Stderr, opts, true))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Rotation describes rotating-file capture for a detached worker's
// stdout/stderr. Parameters follow lumberjack semantics.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Writers returns io.WriteClosers for the worker's stdout and stderr,
// placed in dir as <name>.stdout.log and <name>.stderr.log.
func (r Rotation) Writers(dir, name string) (io.WriteCloser, io.WriteCloser) {
	out := &lj.Logger{
		Filename:   filepath.Join(dir, fmt.Sprintf("%s.stdout.log", name)),
		MaxSize:    valOr(r.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(r.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(r.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   r.Compress,
	}
	errW := &lj.Logger{
		Filename:   filepath.Join(dir, fmt.Sprintf("%s.stderr.log", name)),
		MaxSize:    valOr(r.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(r.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(r.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   r.Compress,
	}
	return out, errW
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
