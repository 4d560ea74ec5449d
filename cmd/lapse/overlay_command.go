package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lapse/internal/imaging"
	"lapse/internal/render"
)

func newOverlayCommand(ctx *commandContext) *cobra.Command {
	overlayCmd := &cobra.Command{
		Use:   "overlay",
		Short: "Overlay utilities",
	}

	var output string
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the configured overlay onto a sample frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			img, err := render.PreviewOverlay(cfg.Rendering, nil)
			if err != nil {
				return err
			}
			if img == nil {
				return errors.New("no overlay font configured (rendering.overlay_font_path)")
			}
			target := output
			if target == "" {
				target = filepath.Join(cfg.Paths.DataDir, "overlay-preview.png")
			}
			if err := imaging.Encode(target, img); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote overlay preview to %s\n", target)
			return nil
		},
	}
	previewCmd.Flags().StringVarP(&output, "output", "o", "", "Destination image (.png or .jpg)")
	overlayCmd.AddCommand(previewCmd)
	return overlayCmd
}
