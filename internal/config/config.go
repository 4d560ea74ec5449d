package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	SyncDir string `toml:"sync_dir"`
	LogDir  string `toml:"log_dir"`
	WorkDir string `toml:"work_dir"`
}

// FFmpeg locates the encoder binary.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Rendering is the active rendering profile. Every job snapshots it at
// construction time.
type Rendering struct {
	FPSCalculationType string  `toml:"fps_calculation_type"`
	FPS                float64 `toml:"fps"`
	RunLengthSeconds   float64 `toml:"run_length_seconds"`
	MinFPS             float64 `toml:"min_fps"`
	MaxFPS             float64 `toml:"max_fps"`
	Bitrate            string  `toml:"bitrate"`
	OutputTemplate     string  `toml:"output_template"`
	OutputFormat       string  `toml:"output_format"`
	ThreadCount        int     `toml:"thread_count"`

	EnableWatermark   bool   `toml:"enable_watermark"`
	SelectedWatermark string `toml:"selected_watermark"`

	OverlayTextTemplate  string `toml:"overlay_text_template"`
	OverlayFontPath      string `toml:"overlay_font_path"`
	OverlayFontSize      int    `toml:"overlay_font_size"`
	OverlayTextPos       []int  `toml:"overlay_text_pos"`
	OverlayTextAlignment string `toml:"overlay_text_alignment"`
	OverlayTextValign    string `toml:"overlay_text_valign"`
	OverlayTextHalign    string `toml:"overlay_text_halign"`
	OverlayTextColor     []int  `toml:"overlay_text_color"`

	PreRollSeconds  float64 `toml:"pre_roll_seconds"`
	PostRollSeconds float64 `toml:"post_roll_seconds"`

	SyncWithTimelapse          bool `toml:"sync_with_timelapse"`
	CleanupAfterRenderComplete bool `toml:"cleanup_after_render_complete"`
	CleanupAfterRenderFail     bool `toml:"cleanup_after_render_fail"`
}

// Camera identifies a snapshot source and its optional render hooks.
type Camera struct {
	GUID               string `toml:"guid"`
	Name               string `toml:"name"`
	BeforeRenderScript string `toml:"before_render_script"`
	AfterRenderScript  string `toml:"after_render_script"`
}

// Workflow contains configuration for queue timing and external processes.
type Workflow struct {
	QueuePollSeconds     int    `toml:"queue_poll_seconds"`
	ScriptTimeoutSeconds int    `toml:"script_timeout_seconds"`
	RenderLockPath       string `toml:"render_lock_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// API contains the daemon HTTP bind address and optional bearer token.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RenderSuccess  bool   `toml:"render_success"`
	RenderFailure  bool   `toml:"render_failure"`
	BatchComplete  bool   `toml:"batch_complete"`
}

// History controls the render outcome ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for lapse.
type Config struct {
	Paths         Paths         `toml:"paths"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Rendering     Rendering     `toml:"rendering"`
	Cameras       []Camera      `toml:"cameras"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	History       History       `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lapse.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into. The sync
// directory belongs to the external timelapse consumer and is created on a
// best-effort basis only.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.TimelapseDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Rendering.SyncWithTimelapse && strings.TrimSpace(c.Paths.SyncDir) != "" {
		_ = os.MkdirAll(c.Paths.SyncDir, 0o755)
	}
	return nil
}

// TimelapseDir is where rendered videos land before optional synchronization.
func (c *Config) TimelapseDir() string {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.DataDir, "timelapse")
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	if p := strings.TrimSpace(c.History.Path); p != "" {
		return p
	}
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// Camera looks up a configured camera by GUID.
func (c *Config) Camera(guid string) (Camera, bool) {
	guid = strings.TrimSpace(guid)
	for _, cam := range c.Cameras {
		if strings.EqualFold(cam.GUID, guid) {
			return cam, true
		}
	}
	return Camera{}, false
}

// Clone returns a deep copy of the rendering profile.
func (r Rendering) Clone() Rendering {
	out := r
	if r.OverlayTextPos != nil {
		out.OverlayTextPos = append([]int(nil), r.OverlayTextPos...)
	}
	if r.OverlayTextColor != nil {
		out.OverlayTextColor = append([]int(nil), r.OverlayTextColor...)
	}
	return out
}

// TextPosition returns the configured overlay origin, defaulting missing
// coordinates to zero.
func (r Rendering) TextPosition() (int, int) {
	var x, y int
	if len(r.OverlayTextPos) > 0 {
		x = r.OverlayTextPos[0]
	}
	if len(r.OverlayTextPos) > 1 {
		y = r.OverlayTextPos[1]
	}
	return x, y
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
