package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ticketsmith/internal/generation"
	"ticketsmith/internal/ingest"
	"ticketsmith/internal/logging"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "generate <summaries-file>",
		Short: "Generate ticket descriptions from a semicolon-separated summary list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			runCtx, runID := runContext(cmd)
			logger = logging.WithContext(runCtx, logger)

			summaries, err := ingest.ReadSummaries(args[0])
			if err != nil {
				return err
			}

			setup := newGeneratorSetup(runCtx, cfg, runID, cmd.ErrOrStderr(), logger, !noArchive)
			defer setup.close()

			results, err := setup.generator.Generate(runCtx, summaries)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				return nil
			}

			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = cfg.Generation.OutputDir
			}
			paths, err := generation.WriteResponses(dir, results)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(results))
			failed := 0
			for i, result := range results {
				status := "ok"
				switch {
				case result.Failed:
					status = "failed"
					failed++
				case result.FallbackUsed:
					status = "fallback"
				}
				path := ""
				if i < len(paths) {
					path = paths[i]
				}
				rows = append(rows, []string{fmt.Sprintf("%d", result.Index), truncateCell(result.Summary, 50), status, path})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Summary", "Status", "File"}, rows, []columnAlignment{alignRight}))
			fmt.Fprintf(out, "Wrote %d response file(s) to %s (run %s)\n", len(paths), dir, runID)
			if failed > 0 {
				fmt.Fprintf(out, "%d of %d generation(s) failed; see log output for details\n", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for ticket<N>.txt responses (default generation.output_dir)")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not record results in the generation history")
	return cmd
}
