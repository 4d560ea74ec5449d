package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <job.json>...",
		Short: "Queue jobs on the running daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				req, err := readJobFile(path)
				if err != nil {
					return err
				}
				resp, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("submit %s: %w", path, wrapClientError(err, ctx.configValue().API.Bind))
				}
				fmt.Fprintf(out, "Queued job %s for camera %s\n", resp.JobID, resp.Camera)
			}
			return nil
		},
	}
}
