package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lapse/internal/api"
	"lapse/internal/config"
	"lapse/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished renders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records, err := loadHistory(cmd.Context(), cfg, limit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	return cmd
}

// loadHistory asks the daemon first and reads the database directly when no
// daemon is listening.
func loadHistory(ctx context.Context, cfg *config.Config, limit int) ([]history.Record, error) {
	if !cfg.History.Enabled {
		return nil, errors.New("render history is disabled (history.enabled = false)")
	}
	client := api.NewClient(cfg.API.Bind, cfg.API.Token)
	records, err := client.History(ctx, limit)
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		return nil, err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return store.List(ctx, limit)
}

func writeHistory(out io.Writer, records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No renders recorded")
		return
	}
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		detail := rec.RenderingPath
		if rec.Status == history.StatusFailed {
			detail = fmt.Sprintf("%s: %s", rec.ErrorKind, rec.ErrorMessage)
		}
		if n := len(rec.ScriptErrors); n > 0 {
			kinds := make([]string, 0, n)
			for _, se := range rec.ScriptErrors {
				kinds = append(kinds, se.Kind)
			}
			detail += " (" + strings.Join(kinds, ", ") + ")"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			rec.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			rec.JobID,
			rec.Camera,
			title.String(string(rec.Status)),
			fmt.Sprintf("%d", rec.SnapshotCount),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Finished", "Job", "Camera", "Status", "Frames", "Output"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}
