package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeRendering()
	c.normalizeCameras()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("LAPSE_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.SyncDir, err = expandPath(c.Paths.SyncDir); err != nil {
		return fmt.Errorf("paths.sync_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.Workflow.RenderLockPath, err = expandPath(strings.TrimSpace(c.Workflow.RenderLockPath)); err != nil {
		return fmt.Errorf("workflow.render_lock_path: %w", err)
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("LAPSE_API_TOKEN"); ok && strings.TrimSpace(c.API.Token) == "" {
		c.API.Token = value
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if value, ok := os.LookupEnv("LAPSE_FFMPEG_PATH"); ok {
		c.FFmpeg.Binary = value
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
}

func (c *Config) normalizeRendering() {
	r := &c.Rendering
	r.FPSCalculationType = strings.ToLower(strings.TrimSpace(r.FPSCalculationType))
	if r.FPSCalculationType == "" {
		r.FPSCalculationType = FPSDuration
	}
	r.Bitrate = strings.TrimSpace(r.Bitrate)
	r.OutputFormat = strings.ToLower(strings.TrimSpace(r.OutputFormat))
	if r.OutputFormat == "" {
		r.OutputFormat = "mp4"
	}
	r.SelectedWatermark = strings.TrimSpace(r.SelectedWatermark)
	r.OverlayFontPath = strings.TrimSpace(r.OverlayFontPath)
	r.OverlayTextAlignment = strings.ToLower(strings.TrimSpace(r.OverlayTextAlignment))
	if r.OverlayTextAlignment == "" {
		r.OverlayTextAlignment = "left"
	}
	r.OverlayTextValign = strings.ToLower(strings.TrimSpace(r.OverlayTextValign))
	if r.OverlayTextValign == "" {
		r.OverlayTextValign = "top"
	}
	r.OverlayTextHalign = strings.ToLower(strings.TrimSpace(r.OverlayTextHalign))
	if r.OverlayTextHalign == "" {
		r.OverlayTextHalign = "left"
	}
	if r.ThreadCount <= 0 {
		r.ThreadCount = 1
	}
	if len(r.OverlayTextColor) == 3 {
		r.OverlayTextColor = append(r.OverlayTextColor, 255)
	}
}

func (c *Config) normalizeCameras() {
	for i := range c.Cameras {
		cam := &c.Cameras[i]
		cam.GUID = strings.TrimSpace(cam.GUID)
		cam.Name = strings.TrimSpace(cam.Name)
		cam.BeforeRenderScript = strings.TrimSpace(cam.BeforeRenderScript)
		cam.AfterRenderScript = strings.TrimSpace(cam.AfterRenderScript)
		if cam.Name == "" {
			cam.Name = cam.GUID
		}
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollSeconds <= 0 {
		c.Workflow.QueuePollSeconds = defaultQueuePollSeconds
	}
	if c.Workflow.ScriptTimeoutSeconds <= 0 {
		c.Workflow.ScriptTimeoutSeconds = defaultScriptTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("LAPSE_NTFY_TOPIC"); ok && strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
