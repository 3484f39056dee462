package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ticketsmith/internal/services/jira"
)

const defaultStoriesJQL = "issuetype = Story ORDER BY created DESC"

func newStoriesCommand(ctx *commandContext) *cobra.Command {
	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "Work with existing Jira stories",
	}
	storiesCmd.AddCommand(newStoriesExportCommand(ctx))
	return storiesCmd
}

func newStoriesExportCommand(ctx *commandContext) *cobra.Command {
	var jql string
	var limit int
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stories as JSON for use as prompt examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.RequireJira(); err != nil {
				return err
			}
			stories, err := newJiraClient(cfg).SearchStories(cmd.Context(), jql, limit)
			if err != nil {
				return err
			}
			if stories == nil {
				stories = []jira.Story{}
			}

			target := strings.TrimSpace(outputPath)
			if target == "" {
				return writeJSON(cmd, stories)
			}
			if err := writeJSONFile(target, stories); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d stories to %s\n", len(stories), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&jql, "jql", defaultStoriesJQL, "JQL selecting the stories to export")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of stories (0 for all)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write JSON to this file instead of stdout")
	return cmd
}

func ensureParentDir(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
