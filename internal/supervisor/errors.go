package supervisor

import "errors"

// Error taxonomy for supervision outcomes. Callers branch with errors.Is;
// none of these are ever swallowed internally.
var (
	// ErrAlreadyRunning is returned by Start when a live record exists and
	// the caller did not stop the worker first.
	ErrAlreadyRunning = errors.New("worker already running")
	// ErrNotRunning is returned by Stop when no record exists.
	ErrNotRunning = errors.New("no supervised worker")
	// ErrStaleRecord means a record existed but its PID is not alive.
	// The record has already been removed when this is returned.
	ErrStaleRecord = errors.New("stale worker record")
	// ErrLaunchFailed wraps spawn failures, including a missing executable.
	ErrLaunchFailed = errors.New("worker launch failed")
	// ErrPathNotFound means the target monitoring directory does not exist.
	ErrPathNotFound = errors.New("target path not found")
)
