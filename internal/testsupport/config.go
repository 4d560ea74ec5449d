package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"lapse/internal/config"
)

// ConfigOption adjusts a config produced by NewConfig.
type ConfigOption func(*fixture)

type fixture struct {
	t    testing.TB
	root string
	cfg  config.Config
}

// NewConfig returns the default config with every path moved under a fresh
// temp directory and the API bound to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	f := &fixture{t: t, root: t.TempDir(), cfg: config.Default()}
	f.cfg.Paths = config.Paths{
		DataDir: f.path("data"),
		SyncDir: f.path("synced"),
		LogDir:  f.path("logs"),
		WorkDir: f.path("work"),
	}
	f.cfg.Workflow.RenderLockPath = f.path("render.lock")
	f.cfg.History.Path = f.path("logs", "history.db")
	f.cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(f)
	}
	cfg := f.cfg
	return &cfg
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.root}, parts...)...)
}

// WithCamera adds a camera.
func WithCamera(guid, name string) ConfigOption {
	return func(f *fixture) {
		f.cfg.Cameras = append(f.cfg.Cameras, config.Camera{GUID: guid, Name: name})
	}
}

// WithStubbedBinaries puts no-op executables for names (ffmpeg when empty)
// at the front of PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(f *fixture) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		bin := f.path("bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			f.t.Fatalf("create stub dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				f.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		f.t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
