package worker

import (
	"io"
	"os/exec"
)

// LaunchSpec describes one worker launch request.
type LaunchSpec struct {
	Kind       Kind
	Dir        string // target directory to monitor (primary argument)
	ConfigFile string // optional worker config file, passed as --config
	Detached   bool   // detach and supervise via the record file

	// Stdout and Stderr override the foreground output destinations when
	// non-nil. Ignored for detached launches; a detached worker must not
	// depend on pipes held by this process.
	Stdout io.Writer
	Stderr io.Writer
}

// Command builds the exec.Cmd for this spec. The worker contract is a single
// positional directory argument plus an optional --config flag.
func (s LaunchSpec) Command(buildDir string) *exec.Cmd {
	args := []string{s.Dir}
	if s.ConfigFile != "" {
		args = append(args, "--config", s.ConfigFile)
	}
	// #nosec G204 -- executable path is derived from the configured build dir
	return exec.Command(s.Kind.Executable(buildDir), args...)
}
