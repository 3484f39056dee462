package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ticketsmith/internal/generation"
	"ticketsmith/internal/ledger"
	"ticketsmith/internal/logging"
	"ticketsmith/internal/services"
	"ticketsmith/internal/tickets"
)

func newFindingCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var enrich bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "finding <sonar-issue-key>...",
		Short: "File a ticket for each SonarQube finding not yet in the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.RequireSonar(); err != nil {
				return err
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
			var templateOpt generation.Option
			if enrich {
				if templateOpt, err = loadTemplateOption(cfg); err != nil {
					return err
				}
			}
			runCtx, runID := runContext(cmd)
			logger = logging.WithContext(runCtx, logger)

			store, err := ledger.Open(cfg.Ledger.Path, logger)
			if err != nil {
				return err
			}
			if err := store.TryLock(); err != nil {
				if errors.Is(err, ledger.ErrLocked) {
					return fmt.Errorf("another ticketsmith run is filing findings (lock %s.lock); retry when it finishes", store.Path())
				}
				return err
			}
			defer func() { _ = store.Unlock() }()

			flow := &tickets.FindingFlow{
				Ledger:    store,
				Source:    newSonarClient(cfg),
				Submitter: newJiraClient(cfg),
				Fields:    fieldConfig(cfg),
				Finding: tickets.FindingConfig{
					Project:   cfg.Jira.FindingProject,
					IssueType: cfg.Jira.FindingIssueType,
					ParentKey: cfg.Jira.FindingParent,
				},
				DryRun: dryRun,
				Logger: logger,
			}
			if dryRun {
				flow.Submitter = tickets.NewDryRunSubmitter(cmd.OutOrStdout())
			}
			if enrich {
				setup := newGeneratorSetup(runCtx, cfg, runID, cmd.ErrOrStderr(), logger, true, templateOpt)
				defer setup.close()
				flow.Enricher = setup.generator
			}

			outcomes := make([]tickets.Outcome, 0, len(args))
			for _, key := range args {
				if runCtx.Err() != nil {
					break
				}
				outcome, err := flow.Create(runCtx, key)
				outcomes = append(outcomes, outcome)
				if errors.Is(err, services.ErrConfiguration) {
					fmt.Fprintln(cmd.OutOrStdout(), renderOutcomes(outcomes))
					return err
				}
			}

			if asJSON {
				if err := writeJSON(cmd, outcomeViews(outcomes)); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderOutcomes(outcomes))
			}
			if err := runCtx.Err(); err != nil {
				return err
			}
			return summarizeOutcomes(outcomes, "finding")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print payloads instead of submitting; the ledger is not updated")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Prefix descriptions with generated text and acceptance criteria")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	return cmd
}
