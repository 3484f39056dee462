package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ticketsmith/internal/ingest"
	"ticketsmith/internal/logging"
	"ticketsmith/internal/tickets"
)

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var sheet string
	var dryRun bool
	var enrich bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "create [spreadsheet]",
		Short: "Create tickets from spreadsheet rows (epics first, then their children)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			path := cfg.Spreadsheet.Path
			if len(args) == 1 {
				path = args[0]
			}
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("no spreadsheet given; pass a path or set spreadsheet.path")
			}
			if !dryRun {
				if err := cfg.RequireJira(); err != nil {
					return err
				}
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			runCtx, runID := runContext(cmd)
			logger = logging.WithContext(runCtx, logger)

			if strings.TrimSpace(sheet) == "" {
				sheet = cfg.Spreadsheet.Sheet
			}
			drafts, err := ingest.ReadSpreadsheet(path, ingest.SpreadsheetOptions{Sheet: sheet})
			if err != nil {
				return err
			}

			flow := &tickets.SpreadsheetFlow{
				Submitter: newJiraClient(cfg),
				Fields:    fieldConfig(cfg),
				Logger:    logger,
			}
			if dryRun {
				flow.Submitter = tickets.NewDryRunSubmitter(cmd.OutOrStdout())
			}
			if enrich {
				templateOpt, err := loadTemplateOption(cfg)
				if err != nil {
					return err
				}
				setup := newGeneratorSetup(runCtx, cfg, runID, cmd.ErrOrStderr(), logger, true, templateOpt)
				defer setup.close()
				flow.Enricher = setup.generator
			}

			outcomes, err := flow.Create(runCtx, drafts)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, outcomeViews(outcomes)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderOutcomes(outcomes))
			}
			return summarizeOutcomes(outcomes, "row")
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name (default spreadsheet.sheet or the active sheet)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print payloads instead of submitting them")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Generate descriptions for rows that have none")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	return cmd
}

// summarizeOutcomes returns an error when any outcome failed so the process
// exits non-zero after printing every result.
func summarizeOutcomes(outcomes []tickets.Outcome, noun string) error {
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d %s(s) failed", failed, len(outcomes), noun)
}
