package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ticketsmith/internal/archive"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var limit int
	var asJSON bool
	var showRaw bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived generation results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if !cfg.Archive.Enabled {
				return fmt.Errorf("generation archive is disabled (archive.enabled = false)")
			}
			store, err := archive.Open(cmd.Context(), cfg.Archive.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []archive.Entry
			if id := strings.TrimSpace(runID); id != "" {
				entries, err = store.Run(cmd.Context(), id)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []archive.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No generation history")
				return nil
			}
			if showRaw {
				for _, e := range entries {
					fmt.Fprintf(out, "=== %s #%d: %s\n%s\n\n", shortRunID(e.RunID), e.ItemIndex, e.Summary, e.RawResponse)
				}
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := "ok"
				switch {
				case e.Failed:
					status = "failed"
				case e.FallbackUsed:
					status = "fallback"
				}
				rows = append(rows, []string{
					formatTime(e.CreatedAt),
					shortRunID(e.RunID),
					fmt.Sprintf("%d", e.ItemIndex),
					truncateCell(e.Summary, 40),
					e.Model,
					status,
					fmt.Sprintf("%.2fs", e.Duration.Seconds()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Created", "Run", "#", "Summary", "Model", "Status", "Runtime"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Show every result of one run id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent results to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&showRaw, "raw", false, "Print the raw model replies")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
