package config

const (
	defaultConfigPath           = "~/.config/lapse/config.toml"
	defaultDataDir              = "~/.local/share/lapse"
	defaultSyncDir              = "~/.local/share/lapse/synced"
	defaultLogDir               = "~/.local/share/lapse/logs"
	defaultFFmpegBinary         = "ffmpeg"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultQueuePollSeconds     = 5
	defaultScriptTimeoutSeconds = 600
	defaultNotifyTimeout        = 10

	// FPSStatic uses the configured fps verbatim.
	FPSStatic = "static"
	// FPSDuration derives fps from the frame count and a target run length.
	FPSDuration = "duration"

	defaultOutputTemplate = "{FAILEDFLAG}{FAILEDSEPARATOR}{GCODEFILENAME}_{PRINTENDTIME}"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			SyncDir: defaultSyncDir,
			LogDir:  defaultLogDir,
		},
		FFmpeg: FFmpeg{
			Binary: defaultFFmpegBinary,
		},
		Rendering: Rendering{
			FPSCalculationType:   FPSDuration,
			FPS:                  30,
			RunLengthSeconds:     10,
			MinFPS:               2,
			MaxFPS:               120,
			Bitrate:              "8000K",
			OutputTemplate:       defaultOutputTemplate,
			OutputFormat:         "mp4",
			ThreadCount:          1,
			OverlayFontSize:      10,
			OverlayTextPos:       []int{10, 10},
			OverlayTextAlignment: "left",
			OverlayTextValign:    "top",
			OverlayTextHalign:    "left",
			OverlayTextColor:     []int{255, 255, 255, 255},
			PreRollSeconds:       0,
			PostRollSeconds:      0,
			SyncWithTimelapse:    false,

			CleanupAfterRenderComplete: true,
			CleanupAfterRenderFail:     true,
		},
		Workflow: Workflow{
			QueuePollSeconds:     defaultQueuePollSeconds,
			ScriptTimeoutSeconds: defaultScriptTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RenderSuccess:  true,
			RenderFailure:  true,
			BatchComplete:  true,
		},
		History: History{
			Enabled: true,
		},
	}
}
