package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:   "lapse",
		Short: "Render printer timelapses from captured snapshots",
		Long: "lapse queues finished print jobs and renders each camera's snapshots\n" +
			"into a timelapse video, either through the background daemon or\n" +
			"directly with the render command.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddCommand(newDaemonCommands(ctx)...)
	for _, build := range []func(*commandContext) *cobra.Command{
		newDaemonRunCommand,
		newRenderCommand,
		newSubmitCommand,
		newHistoryCommand,
		newDepsCommand,
		newLogsCommand,
		newOverlayCommand,
		newTestNotifyCommand,
		newConfigCommand,
	} {
		root.AddCommand(build(ctx))
	}
	return root
}
