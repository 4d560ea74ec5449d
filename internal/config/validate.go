package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Rendering template checks
// live with the renderer because they depend on its token vocabulary.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRendering(); err != nil {
		return err
	}
	if err := c.validateCameras(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Rendering.SyncWithTimelapse && strings.TrimSpace(c.Paths.SyncDir) == "" {
		return errors.New("paths.sync_dir must be set when rendering.sync_with_timelapse is true")
	}
	return nil
}

func (c *Config) validateRendering() error {
	r := c.Rendering
	switch r.FPSCalculationType {
	case FPSStatic:
		if r.FPS <= 0 {
			return errors.New("rendering.fps must be positive")
		}
	case FPSDuration:
		if r.RunLengthSeconds <= 0 {
			return errors.New("rendering.run_length_seconds must be positive")
		}
		if r.MinFPS <= 0 || r.MaxFPS <= 0 {
			return errors.New("rendering.min_fps and rendering.max_fps must be positive")
		}
		if r.MinFPS > r.MaxFPS {
			return errors.New("rendering.min_fps must not exceed rendering.max_fps")
		}
	default:
		return fmt.Errorf("rendering.fps_calculation_type: unsupported value %q (expected %q or %q)", r.FPSCalculationType, FPSStatic, FPSDuration)
	}
	if r.PreRollSeconds < 0 || r.PostRollSeconds < 0 {
		return errors.New("rendering.pre_roll_seconds and rendering.post_roll_seconds must be >= 0")
	}
	if r.OverlayFontSize < 0 {
		return errors.New("rendering.overlay_font_size must be >= 0")
	}
	if n := len(r.OverlayTextPos); n != 0 && n != 2 {
		return errors.New("rendering.overlay_text_pos must contain exactly two coordinates")
	}
	if n := len(r.OverlayTextColor); n != 0 && n != 3 && n != 4 {
		return errors.New("rendering.overlay_text_color must contain 3 or 4 channel values")
	}
	for _, channel := range r.OverlayTextColor {
		if channel < 0 || channel > 255 {
			return errors.New("rendering.overlay_text_color channels must be between 0 and 255")
		}
	}
	return nil
}

func (c *Config) validateCameras() error {
	seen := make(map[string]struct{}, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.GUID == "" {
			return fmt.Errorf("cameras[%d].guid must be set", i)
		}
		key := strings.ToLower(cam.GUID)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("cameras[%d].guid %q is duplicated", i, cam.GUID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_seconds":     c.Workflow.QueuePollSeconds,
		"workflow.script_timeout_seconds": c.Workflow.ScriptTimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
