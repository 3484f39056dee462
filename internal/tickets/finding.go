package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ticketsmith/internal/ledger"
	"ticketsmith/internal/logging"
	"ticketsmith/internal/services"
	"ticketsmith/internal/services/sonar"
)

// FindingSource resolves finding keys.
type FindingSource interface {
	Issue(ctx context.Context, key string) (sonar.Finding, error)
}

// Ledger is the record of findings that already produced tickets.
type Ledger interface {
	Lookup(key string) (ledger.Entry, bool, error)
	Record(key, ticketKey string) (ledger.Entry, error)
}

// readinessChecker is implemented by enrichers that can detect configuration
// problems before any network call.
type readinessChecker interface {
	Ready() error
}

// FindingConfig controls how findings become drafts.
type FindingConfig struct {
	Project   string
	IssueType string
	ParentKey string
}

var severityCaser = cases.Title(language.English)

// FindingDraft renders a finding as a ticket draft.
func FindingDraft(f sonar.Finding, cfg FindingConfig) Draft {
	severity := strings.TrimSpace(f.Severity)
	summary := strings.TrimSpace(f.Message)
	if severity != "" {
		summary = fmt.Sprintf("[%s] %s", severityCaser.String(strings.ToLower(severity)), summary)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Rule: %s\n", f.Rule)
	fmt.Fprintf(&b, "Severity: %s\n", severity)
	if f.Type != "" {
		fmt.Fprintf(&b, "Type: %s\n", f.Type)
	}
	fmt.Fprintf(&b, "Location: %s\n", f.Location())
	fmt.Fprintf(&b, "Issue: %s\n", f.Message)
	fmt.Fprintf(&b, "SonarQube key: %s", f.Key)

	return Draft{
		IssueType:   cfg.IssueType,
		Project:     cfg.Project,
		Summary:     summary,
		Description: b.String(),
		ParentKey:   cfg.ParentKey,
	}
}

// FindingFlow turns static-analysis findings into tickets, at most once per
// finding key.
type FindingFlow struct {
	Ledger    Ledger
	Source    FindingSource
	Submitter Submitter
	// Enricher, when set, prefixes the description with generated text and
	// supplies acceptance criteria.
	Enricher Enricher
	Fields   FieldConfig
	Finding  FindingConfig
	// DryRun skips recording submissions in the ledger.
	DryRun bool
	Logger *slog.Logger
}

// Create files a ticket for key unless the ledger already has one. The
// ledger is consulted first and updated right after a successful
// submission, before success is reported.
func (f *FindingFlow) Create(ctx context.Context, key string) (Outcome, error) {
	key = strings.TrimSpace(key)
	outcome := Outcome{Ref: key}
	if key == "" {
		outcome.Err = services.Wrap(services.ErrValidation, "tickets", "finding", "finding key required", nil)
		return outcome, outcome.Err
	}
	ctx = services.WithFindingKey(ctx, key)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(f.Logger, "finding"))

	if checker, ok := f.Enricher.(readinessChecker); ok {
		if err := checker.Ready(); err != nil {
			outcome.Err = err
			return outcome, err
		}
	}

	existing, found, err := f.Ledger.Lookup(key)
	if err != nil {
		outcome.Err = err
		return outcome, err
	}
	if found {
		outcome.TicketKey = existing.TicketKey
		logger.Info("finding already has a ticket", logging.String("ticket_key", existing.TicketKey))
		return outcome, nil
	}

	finding, err := f.Source.Issue(ctx, key)
	if err != nil {
		outcome.Err = err
		return outcome, err
	}
	draft := FindingDraft(finding, f.Finding)
	outcome.Summary = draft.Summary

	if f.Enricher != nil {
		draft, err = f.enrich(ctx, draft)
		if err != nil {
			outcome.Err = err
			return outcome, err
		}
	}

	created, err := f.Submitter.CreateIssue(ctx, BuildFields(draft, f.Fields))
	if err != nil {
		outcome.Err = err
		return outcome, err
	}
	outcome.TicketKey = created.Key
	outcome.Created = true

	if f.DryRun {
		return outcome, nil
	}
	if _, err := f.Ledger.Record(key, created.Key); err != nil {
		outcome.Err = fmt.Errorf("ticket %s was created but not recorded for %s; add it to the ledger by hand: %w", created.Key, key, err)
		logging.ErrorWithContext(logger, "ledger record failed after submission", "ledger_record_failed",
			logging.String("ticket_key", created.Key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "append the row manually to avoid a duplicate ticket"),
		)
		return outcome, outcome.Err
	}
	logger.Info("created ticket for finding", logging.String("ticket_key", created.Key))
	return outcome, nil
}

func (f *FindingFlow) enrich(ctx context.Context, draft Draft) (Draft, error) {
	results, err := f.Enricher.Generate(ctx, []string{draft.Summary + "\n" + draft.Description})
	if err != nil {
		return draft, err
	}
	if len(results) == 0 || results[0].Failed {
		return draft, nil
	}
	draft.Description = strings.TrimSpace(results[0].Description + "\n\n" + draft.Description)
	draft.AcceptanceCriteria = results[0].AcceptanceCriteria
	return draft, nil
}
