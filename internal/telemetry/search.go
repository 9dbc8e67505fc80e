package telemetry

import (
	"bufio"
	"os"
	"strings"
)

// DefaultSearchLimit caps result size when the caller does not choose one.
const DefaultSearchLimit = 50

// Search streams the log at path and returns lines containing query,
// case-insensitively. Matching stops as soon as limit lines are collected,
// so the tail of a large log is never read past the cap. limit <= 0 applies
// DefaultSearchLimit. A missing log returns no matches and no error.
func Search(path, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	needle := strings.ToLower(query)
	var matches []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, line)
			if len(matches) >= limit {
				return matches, nil
			}
		}
	}
	return matches, sc.Err()
}

// TailLines returns the last n lines of the log at path. A missing log
// returns nil. Used by the logs view; follow streaming lives in Follow.
func TailLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	// Ring over the last n lines; the log is line-oriented and append-only.
	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			copy(ring, ring[1:])
			ring = ring[:n-1]
		}
		ring = append(ring, sc.Text())
	}
	return ring, sc.Err()
}
