package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/fmonctl/internal/logger"
	"github.com/loykin/fmonctl/internal/worker"
)

// Paths locates every file the control plane shares with the worker.
// Components receive a Paths value at construction; there are no
// package-level path globals, so tests can point everything at a temp dir.
type Paths struct {
	DataDir  string // directory the worker writes its log/snapshot files into
	BuildDir string // directory holding the worker executables
	PIDFile  string // record file for the supervised worker
	Socket   string // control channel rendezvous path
}

// DefaultPaths mirrors the layout the worker assumes when launched from its
// own checkout: record and logs next to the target, socket under /tmp.
func DefaultPaths() Paths {
	return Paths{
		DataDir:  ".",
		BuildDir: "build",
		PIDFile:  "monitor.pid",
		Socket:   "/tmp/file_monitor.sock",
	}
}

// Normalize fills defaults and resolves relative members against DataDir.
func (p Paths) Normalize() Paths {
	def := DefaultPaths()
	if p.DataDir == "" {
		p.DataDir = def.DataDir
	}
	if p.BuildDir == "" {
		p.BuildDir = def.BuildDir
	}
	if p.PIDFile == "" {
		p.PIDFile = def.PIDFile
	}
	if p.Socket == "" {
		p.Socket = def.Socket
	}
	if !filepath.IsAbs(p.BuildDir) {
		p.BuildDir = filepath.Join(p.DataDir, p.BuildDir)
	}
	if !filepath.IsAbs(p.PIDFile) {
		p.PIDFile = filepath.Join(p.DataDir, p.PIDFile)
	}
	return p
}

// PathsConfig is the TOML shape of Paths.
type PathsConfig struct {
	DataDir  string `toml:"data_dir" mapstructure:"data_dir"`
	BuildDir string `toml:"build_dir" mapstructure:"build_dir"`
	PIDFile  string `toml:"pid_file" mapstructure:"pid_file"`
	Socket   string `toml:"socket" mapstructure:"socket"`
}

type WorkerConfig struct {
	Kind       string   `toml:"kind" mapstructure:"kind"`
	ConfigFile string   `toml:"config_file" mapstructure:"config_file"`
	Recursive  bool     `toml:"recursive" mapstructure:"recursive"`
	Extensions []string `toml:"extensions" mapstructure:"extensions"`
}

type FollowConfig struct {
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
}

type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type LogConfig struct {
	Level string `toml:"level" mapstructure:"level"`
	Color bool   `toml:"color" mapstructure:"color"`
	// Rotation for detached worker stdout/stderr capture.
	MaxSizeMB  int  `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `toml:"compress" mapstructure:"compress"`
}

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Paths   PathsConfig    `toml:"paths" mapstructure:"paths"`
	Worker  WorkerConfig   `toml:"worker" mapstructure:"worker"`
	Follow  FollowConfig   `toml:"follow" mapstructure:"follow"`
	Server  *ServerConfig  `toml:"server" mapstructure:"server"`
	Metrics *MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	History *HistoryConfig `toml:"history" mapstructure:"history"`
	Log     *LogConfig     `toml:"log" mapstructure:"log"`
}

// Config is the resolved runtime configuration handed to components.
type Config struct {
	Paths          Paths
	Kind           worker.Kind
	WorkerConfig   string // optional config file passed through to the worker
	Recursive      bool
	Extensions     []string
	FollowInterval time.Duration
	Server         *ServerConfig
	Metrics        *MetricsConfig
	History        *HistoryConfig
	Log            LogConfig
	Rotation       logger.Rotation
}

// Default returns a usable configuration without any config file present.
func Default() *Config {
	return &Config{
		Paths:          DefaultPaths().Normalize(),
		Kind:           worker.KindStandard,
		Recursive:      true,
		FollowInterval: 100 * time.Millisecond,
		Log:            LogConfig{Level: "info", Color: true},
	}
}

// Load reads a TOML config file and resolves it into a Config.
// An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return resolve(path, fc)
}

func resolve(path string, fc FileConfig) (*Config, error) {
	cfg := Default()

	p := Paths{
		DataDir:  fc.Paths.DataDir,
		BuildDir: fc.Paths.BuildDir,
		PIDFile:  fc.Paths.PIDFile,
		Socket:   fc.Paths.Socket,
	}
	// Relative data_dir is resolved against the config file location so a
	// config can travel with the monitored checkout.
	if p.DataDir != "" && !filepath.IsAbs(p.DataDir) {
		p.DataDir = filepath.Join(filepath.Dir(path), p.DataDir)
	}
	cfg.Paths = p.Normalize()

	if fc.Worker.Kind != "" {
		k, err := worker.ParseKind(fc.Worker.Kind)
		if err != nil {
			return nil, err
		}
		cfg.Kind = k
	}
	cfg.WorkerConfig = fc.Worker.ConfigFile
	cfg.Recursive = fc.Worker.Recursive
	cfg.Extensions = fc.Worker.Extensions

	if fc.Follow.Interval > 0 {
		cfg.FollowInterval = fc.Follow.Interval
	}
	cfg.Server = fc.Server
	cfg.Metrics = fc.Metrics
	cfg.History = fc.History
	if fc.Log != nil {
		if fc.Log.Level != "" {
			cfg.Log.Level = fc.Log.Level
		}
		cfg.Log.Color = fc.Log.Color
		cfg.Rotation = logger.Rotation{
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		}
	}
	return cfg, nil
}

// Save persists the worker-facing settings to a TOML file, keeping the rest
// of an existing file intact. Used by `config set`.
func Save(path string, wc WorkerConfig) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if wc.Kind != "" {
		v.Set("worker.kind", wc.Kind)
	}
	v.Set("worker.recursive", wc.Recursive)
	v.Set("worker.extensions", wc.Extensions)
	if wc.ConfigFile != "" {
		v.Set("worker.config_file", wc.ConfigFile)
	}
	return v.WriteConfigAs(path)
}
