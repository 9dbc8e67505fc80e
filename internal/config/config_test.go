package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/fmonctl/internal/worker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Kind != worker.KindStandard {
		t.Fatalf("Kind = %s", cfg.Kind)
	}
	if !cfg.Recursive {
		t.Fatal("Recursive default must be true")
	}
	if cfg.FollowInterval != 100*time.Millisecond {
		t.Fatalf("FollowInterval = %v", cfg.FollowInterval)
	}
	if cfg.Paths.Socket != "/tmp/file_monitor.sock" {
		t.Fatalf("Socket = %s", cfg.Paths.Socket)
	}
}

func TestPathsNormalize(t *testing.T) {
	p := Paths{DataDir: "/srv/mon"}.Normalize()
	if p.PIDFile != "/srv/mon/monitor.pid" {
		t.Fatalf("PIDFile = %s", p.PIDFile)
	}
	if p.BuildDir != "/srv/mon/build" {
		t.Fatalf("BuildDir = %s", p.BuildDir)
	}
	// Absolute members survive.
	p = Paths{DataDir: "/srv/mon", PIDFile: "/run/mon.pid"}.Normalize()
	if p.PIDFile != "/run/mon.pid" {
		t.Fatalf("PIDFile = %s", p.PIDFile)
	}
}

func TestLoadEmptyPathYieldsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind != worker.KindStandard {
		t.Fatalf("Kind = %s", cfg.Kind)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.toml")
	body := `
[paths]
data_dir = "data"
socket = "/tmp/custom.sock"

[worker]
kind = "enhanced"
recursive = true
extensions = [".go", ".md"]

[follow]
interval = "250ms"

[server]
listen = ":9000"
base_path = "/fmon"

[metrics]
enabled = true

[history]
dsn = "sqlite://:memory:"

[log]
level = "debug"
color = false
max_size_mb = 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind != worker.KindEnhanced {
		t.Fatalf("Kind = %s", cfg.Kind)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("DataDir = %s", cfg.Paths.DataDir)
	}
	if cfg.Paths.Socket != "/tmp/custom.sock" {
		t.Fatalf("Socket = %s", cfg.Paths.Socket)
	}
	if cfg.FollowInterval != 250*time.Millisecond {
		t.Fatalf("FollowInterval = %v", cfg.FollowInterval)
	}
	if cfg.Server == nil || cfg.Server.Listen != ":9000" || cfg.Server.BasePath != "/fmon" {
		t.Fatalf("Server = %+v", cfg.Server)
	}
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		t.Fatalf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.History == nil || cfg.History.DSN != "sqlite://:memory:" {
		t.Fatalf("History = %+v", cfg.History)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Color {
		t.Fatalf("Log = %+v", cfg.Log)
	}
	if cfg.Rotation.MaxSizeMB != 5 {
		t.Fatalf("Rotation = %+v", cfg.Rotation)
	}
	if len(cfg.Extensions) != 2 || cfg.Extensions[0] != ".go" {
		t.Fatalf("Extensions = %v", cfg.Extensions)
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.toml")
	if err := os.WriteFile(path, []byte("[worker]\nkind = \"hyper\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown kind accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.toml")
	err := Save(path, WorkerConfig{
		Kind:       "advanced",
		Recursive:  true,
		Extensions: []string{".log"},
		ConfigFile: "monitor.conf",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind != worker.KindAdvanced {
		t.Fatalf("Kind = %s", cfg.Kind)
	}
	if !cfg.Recursive || len(cfg.Extensions) != 1 || cfg.WorkerConfig != "monitor.conf" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestSavePreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.toml")
	body := "[server]\nlisten = \":9000\"\n\n[worker]\nkind = \"standard\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Save(path, WorkerConfig{Kind: "enhanced", Recursive: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kind != worker.KindEnhanced {
		t.Fatalf("Kind = %s", cfg.Kind)
	}
	if cfg.Server == nil || cfg.Server.Listen != ":9000" {
		t.Fatalf("server section lost: %+v", cfg.Server)
	}
}
