package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lapse/internal/api"
	"lapse/internal/config"
	"lapse/internal/render"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(filepath.Dir(cfg.Paths.DataDir), "lapse.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeJobFile(t *testing.T, dir, jobGUID, cameraGUID string) string {
	t.Helper()
	req := api.SubmitRequest{
		Job: render.JobInfo{
			JobGUID:        jobGUID,
			PrintFileName:  "benchy.gcode",
			PrintStartTime: 1700000000,
			PrintEndTime:   1700003600,
			PrintEndState:  render.PrintStateCompleted,
		},
		CameraGUID: cameraGUID,
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal job: %v", err)
	}
	path := filepath.Join(dir, jobGUID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write job: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestRootHelp(t *testing.T) {
	out, _, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"render", "daemon", "status", "history", "config", "deps", "logs", "overlay"} {
		requireContains(t, out, name)
	}
}
