package main

import (
	"context"
	"io"
	"log/slog"

	"ticketsmith/internal/archive"
	"ticketsmith/internal/config"
	"ticketsmith/internal/generation"
	"ticketsmith/internal/logging"
	"ticketsmith/internal/services/jira"
	"ticketsmith/internal/services/llm"
	"ticketsmith/internal/services/sonar"
	"ticketsmith/internal/tickets"
)

func newLLMClient(cfg *config.Config) *llm.Client {
	base, maxDelay := cfg.RetryBackoff()
	return llm.NewClient(llm.Config{
		API:            cfg.LLM.API,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	},
		llm.WithRetryMaxAttempts(cfg.LLM.MaxAttempts),
		llm.WithRetryBackoff(base, maxDelay),
	)
}

func newJiraClient(cfg *config.Config) *jira.Client {
	return jira.NewClient(jira.Config{
		BaseURL:                 cfg.Jira.BaseURL,
		Email:                   cfg.Jira.Email,
		APIToken:                cfg.Jira.APIToken,
		AcceptanceCriteriaField: cfg.Jira.AcceptanceCriteriaField,
		ReleaseNotesField:       cfg.Jira.ReleaseNotesField,
		TimeoutSeconds:          cfg.Jira.TimeoutSeconds,
		InsecureSkipVerify:      cfg.Jira.InsecureSkipVerify,
	})
}

func newSonarClient(cfg *config.Config) *sonar.Client {
	return sonar.NewClient(sonar.Config{
		BaseURL:            cfg.Sonar.BaseURL,
		Token:              cfg.Sonar.Token,
		TimeoutSeconds:     cfg.Sonar.TimeoutSeconds,
		InsecureSkipVerify: cfg.Sonar.InsecureSkipVerify,
	})
}

func fieldConfig(cfg *config.Config) tickets.FieldConfig {
	return tickets.FieldConfig{
		CategoryField:           cfg.Jira.CategoryField,
		CategoryValue:           cfg.Jira.CategoryValue,
		AcceptanceCriteriaField: cfg.Jira.AcceptanceCriteriaField,
		EpicIssueType:           cfg.Jira.EpicIssueType,
	}
}

// loadTemplateOption validates the configured template up front so a bad
// template fails the command before any network call.
func loadTemplateOption(cfg *config.Config) (generation.Option, error) {
	tmpl, err := generation.LoadTemplate(cfg.Generation.TemplatePath)
	if err != nil {
		return nil, err
	}
	return generation.WithTemplate(tmpl), nil
}

// generatorSetup owns the generator and, when enabled, the archive it
// records into. close must be called once the batch is done.
type generatorSetup struct {
	generator *generation.Generator
	store     *archive.Store
}

func (g *generatorSetup) close() {
	if g != nil && g.store != nil {
		_ = g.store.Close()
	}
}

// newGeneratorSetup wires the chat client, template, progress output and
// archive. An archive that cannot be opened is logged and skipped.
func newGeneratorSetup(ctx context.Context, cfg *config.Config, runID string, progress io.Writer, logger *slog.Logger, useArchive bool, extra ...generation.Option) *generatorSetup {
	client := newLLMClient(cfg)
	opts := []generation.Option{
		generation.WithProgressWriter(progress),
		generation.WithLogger(logger),
		generation.WithModelName(client.Model()),
	}
	opts = append(opts, extra...)
	setup := &generatorSetup{}
	if useArchive && cfg.Archive.Enabled {
		store, err := archive.Open(ctx, cfg.Archive.Path)
		if err != nil {
			logging.WarnWithContext(logger, "generation archive unavailable", "archive_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "results will not be kept in history"),
				logging.String(logging.FieldErrorHint, "check archive.path or disable the archive"),
			)
		} else {
			setup.store = store
			opts = append(opts, generation.WithRecorder(archive.RunRecorder{Store: store, RunID: runID, Model: client.Model()}))
		}
	}
	setup.generator = generation.NewGenerator(client, cfg.Generation.TemplatePath, cfg.Generation.SystemPrompt, opts...)
	return setup
}
