package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lapse/internal/api"
	"lapse/internal/deps"
	"lapse/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the encoder, camera hook scripts and render paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			statuses := deps.Check(cfg)
			for _, line := range dependencyLines(api.FromDependencies(statuses), colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(out, line)
			}
			checks := preflight.RunAll(cfg)
			for _, check := range checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}

			var problems []string
			for _, dep := range deps.MissingRequired(statuses) {
				problems = append(problems, dep.Name)
			}
			for _, check := range preflight.Failed(checks) {
				problems = append(problems, check.Name)
			}
			if len(problems) > 0 {
				return fmt.Errorf("required dependencies missing: %s", strings.Join(problems, ", "))
			}
			return nil
		},
	}
}
