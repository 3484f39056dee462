package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ticketsmith/internal/ledger"
	"ticketsmith/internal/logging"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the finding-to-ticket ledger",
	}
	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerLookupCommand(ctx))
	return ledgerCmd
}

func openLedger(ctx *commandContext, cmd *cobra.Command) (*ledger.Store, error) {
	cfg := ctx.configValue()
	logger, err := ctx.logger(cmd)
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.Ledger.Path, logging.NewComponentLogger(logger, "ledger"))
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded findings in file order",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx, cmd)
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []ledger.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "Ledger %s has no entries\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.FindingKey, e.TicketKey, formatTime(e.CreatedAt)})
			}
			fmt.Fprintln(out, renderTable([]string{"Finding", "Ticket", "Created"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newLedgerLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <sonar-issue-key>",
		Short: "Show the ticket recorded for a finding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx, cmd)
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[0])
			entry, found, err := store.Lookup(key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "%s: no ticket recorded\n", key)
				return nil
			}
			fmt.Fprintf(out, "%s: %s (created %s)\n", entry.FindingKey, entry.TicketKey, formatTime(entry.CreatedAt))
			return nil
		},
	}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
