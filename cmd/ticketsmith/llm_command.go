package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLLMCommand(ctx *commandContext) *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Generation backend utilities",
	}
	llmCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify the backend is reachable and serves the configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client := newLLMClient(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s (%s)\n", cfg.LLM.BaseURL, cfg.LLM.API)
			fmt.Fprintf(out, "Model: %s\n", client.Model())
			if err := client.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("backend check failed: %w", err)
			}
			fmt.Fprintln(out, "Backend healthy")
			return nil
		},
	})
	return llmCmd
}
