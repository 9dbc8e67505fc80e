package worker

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects which worker executable is supervised and which snapshot and
// log files that worker maintains. It replaces the ad hoc flag combinations
// the workers were historically selected with.
type Kind string

const (
	KindStandard Kind = "standard"
	KindAdvanced Kind = "advanced"
	KindEnhanced Kind = "enhanced"
)

// Kinds lists every supported worker variant, standard first.
func Kinds() []Kind { return []Kind{KindStandard, KindAdvanced, KindEnhanced} }

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return KindStandard, nil
	case "advanced":
		return KindAdvanced, nil
	case "enhanced":
		return KindEnhanced, nil
	}
	return "", fmt.Errorf("unknown worker kind %q (want standard, advanced or enhanced)", s)
}

// DisplayName is the human-facing name used in status output.
func (k Kind) DisplayName() string {
	switch k {
	case KindAdvanced:
		return "Advanced Monitor"
	case KindEnhanced:
		return "Enhanced Monitor"
	default:
		return "Standard Monitor"
	}
}

// Executable returns the worker binary path for this kind under buildDir.
func (k Kind) Executable(buildDir string) string {
	switch k {
	case KindAdvanced:
		return filepath.Join(buildDir, "advanced_monitor")
	case KindEnhanced:
		return filepath.Join(buildDir, "enhanced_monitor")
	default:
		return filepath.Join(buildDir, "main")
	}
}

// SnapshotFile returns the path of the snapshot document this kind of worker
// periodically overwrites, or "" when the kind publishes none.
func (k Kind) SnapshotFile(dataDir string) string {
	switch k {
	case KindAdvanced:
		return filepath.Join(dataDir, "performance_stats.json")
	case KindEnhanced:
		return filepath.Join(dataDir, "enhanced_stats.json")
	default:
		return ""
	}
}

// EventLog returns the append-only event log this kind of worker writes.
func (k Kind) EventLog(dataDir string) string {
	if k == KindEnhanced {
		return filepath.Join(dataDir, "enhanced_monitor.log")
	}
	return filepath.Join(dataDir, "monitor.log")
}
