package detector

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Alive returns true if a process with the given pid exists. The probe is
// signal 0, which never affects the target. EPERM counts as alive: a record
// we wrote is trusted more than a permission error.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// PIDDetector detects by a provided PID number.
type PIDDetector struct{ PID int }

func (d PIDDetector) Alive() (bool, error) { return Alive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

// RecordDetector detects the worker via its on-disk process record.
// Only the first line (the decimal PID) is consulted here; the supervisor
// owns the full record format.
type RecordDetector struct{ Path string }

func (d RecordDetector) Alive() (bool, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return false, fmt.Errorf("invalid pid in %s: %w", d.Path, err)
	}
	return Alive(pid), nil
}

func (d RecordDetector) Describe() string { return "record:" + d.Path }
