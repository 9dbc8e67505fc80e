package main

import "time"

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	DataDir    string
	LogLevel   string
	NoColor    bool
}

// Flag structs to decouple cobra from logic for testing.

type StartFlags struct {
	Kind         string
	Dir          string
	WorkerConfig string
	Detach       bool
	Force        bool
	Capture      bool
}

type StatusFlags struct {
	JSON bool
}

type LogsShowFlags struct {
	Kind  string
	Lines int
}

type LogsFollowFlags struct {
	Kind     string
	Interval time.Duration
}

type LogsStatsFlags struct {
	Kind string
	JSON bool
}

type LogsSearchFlags struct {
	Kind  string
	Limit int
}

type LogsCleanFlags struct {
	Kind  string
	Force bool
}

type LogsArchiveFlags struct {
	Kind string
	DSN  string
}

type ConfigSetFlags struct {
	Kind       string
	Recursive  bool
	Extensions []string
	WorkerFile string
}

type PerfFlags struct {
	Kind string
	JSON bool
}

type ServeFlags struct {
	Listen    string
	BasePath  string
	NoMetrics bool
}
