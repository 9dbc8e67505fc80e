package detector

// Detector is a strategy that determines if the worker process is running.
// Implementations may check the record file, a PID number, or a custom script.
// It must be safe for concurrent use.
type Detector interface {
	// Alive returns true if the worker is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}
