package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"lapse/internal/config"
	"lapse/internal/daemon"
	"lapse/internal/deps"
	"lapse/internal/logging"
	"lapse/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the lapse daemon and blocks until SIGINT/SIGTERM or a fatal
// render error.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.LogDir, daemon.PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Assemble(cfg, logger, AssembleOptions{})
	if err != nil {
		logger.Error("assemble runtime", logging.Error(err))
		return err
	}
	defer rt.Close()

	d, err := daemon.New(cfg, logger, rt.Queue, rt.Processor, rt.Hub, rt.History)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("lapse daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := deps.CheckFFmpeg(cfg.FFmpeg.Binary)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("ffmpeg_available", ffmpeg.Available),
		logging.String("ffmpeg_binary", cfg.FFmpeg.Binary),
		logging.Int("cameras", len(cfg.Cameras)),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("sync_enabled", cfg.Rendering.SyncWithTimelapse),
	}
	if !ffmpeg.Available {
		logging.WarnWithContext(logger, "ffmpeg unavailable", "dependency_missing",
			logging.String("detail", ffmpeg.Detail),
			logging.String(logging.FieldImpact, "every render will fail at the encode stage"),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.binary"),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)

	for _, check := range preflight.Failed(preflight.RunAll(cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldImpact, "renders that need this path will fail"),
		)
	}
}
