package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Record is the on-disk ground truth for an attempted worker launch.
// Its existence never implies liveness; every reader must re-verify the PID.
type Record struct {
	PID        int       `json:"-"`
	RecordedAt time.Time `json:"recorded_at"`
}

// recordMeta is the JSON that follows the PID line in the record file.
type recordMeta struct {
	RecordedAt time.Time `json:"recorded_at"`
}

// WriteRecord persists rec at path. Format: first line is the decimal PID,
// second line is JSON metadata. Legacy files with only the PID line parse too.
func WriteRecord(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	meta, err := json.Marshal(recordMeta{RecordedAt: rec.RecordedAt})
	if err != nil {
		return err
	}
	data := strconv.Itoa(rec.PID) + "\n" + string(meta) + "\n"
	return os.WriteFile(path, []byte(data), 0o600)
}

// ReadRecord reads a record file written by WriteRecord.
func ReadRecord(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	pidLine, rest, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return Record{}, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	rec := Record{PID: pid}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		var meta recordMeta
		// Metadata is best-effort; the PID alone is a valid legacy record.
		if err := json.Unmarshal([]byte(rest), &meta); err == nil {
			rec.RecordedAt = meta.RecordedAt
		}
	}
	return rec, nil
}

// RemoveRecord deletes the record file, tolerating absence.
func RemoveRecord(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
