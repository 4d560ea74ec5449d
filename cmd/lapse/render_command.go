package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lapse/internal/daemonrun"
	"lapse/internal/logging"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "render <job.json>...",
		Short: "Render one or more jobs in order and exit",
		Long: "Render reads job files ({\"job\": {...}, \"camera_guid\": \"...\"}), renders them " +
			"one at a time without a daemon, and exits non-zero when any job fails.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			jobs, err := readBatchJobs(args)
			if err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			logger, err := logging.New(logging.Options{
				Level:            level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{"stderr", logPath},
				ErrorOutputPaths: []string{"stderr", logPath},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			result, err := daemonrun.RenderBatch(cmd.Context(), cfg, logger, jobs)
			out := cmd.OutOrStdout()
			for _, p := range result.Succeeded {
				fmt.Fprintf(out, "Rendered %s (%s)\n", p.RenderingPath(), p.CameraName)
				if p.Synchronize {
					fmt.Fprintf(out, "  synchronized to %s\n", p.SynchronizationPath())
				}
			}
			for _, failed := range result.Failed {
				fmt.Fprintf(out, "Failed %s (%s): %s\n", failed.Payload.JobID, failed.Payload.CameraName, failed.Err.Message)
			}
			if err != nil {
				return err
			}
			if n := len(result.Failed); n > 0 {
				return fmt.Errorf("%d of %d renders failed", n, n+len(result.Succeeded))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	return cmd
}
