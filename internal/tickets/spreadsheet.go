package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ticketsmith/internal/logging"
	"ticketsmith/internal/services"
)

// SpreadsheetFlow submits spreadsheet drafts: epics first, then the rows
// that reference them by epic id.
type SpreadsheetFlow struct {
	Submitter Submitter
	Enricher  Enricher
	Fields    FieldConfig
	Logger    *slog.Logger
}

// Create submits drafts and returns one outcome per draft, epics first. A
// failed row does not stop the batch; only context cancellation or a
// generation setup error is returned.
func (s *SpreadsheetFlow) Create(ctx context.Context, drafts []Draft) ([]Outcome, error) {
	logger := logging.NewComponentLogger(s.Logger, "spreadsheet")

	drafts, err := Enrich(ctx, s.Enricher, drafts)
	if err != nil {
		return nil, err
	}

	var epics, children []Draft
	for _, d := range drafts {
		if IsEpic(d.IssueType, s.Fields) {
			epics = append(epics, d)
		} else {
			children = append(children, d)
		}
	}

	outcomes := make([]Outcome, 0, len(drafts))
	epicKeys := make(map[string]string, len(epics))
	for _, epic := range epics {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := s.submit(ctx, logger, epic)
		if !outcome.Failed() && epic.EpicID != "" {
			epicKeys[strings.TrimSpace(epic.EpicID)] = outcome.TicketKey
		}
		outcomes = append(outcomes, outcome)
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		if child.ParentKey == "" && child.EpicID != "" {
			parent, ok := epicKeys[strings.TrimSpace(child.EpicID)]
			if !ok {
				err := services.Wrap(services.ErrValidation, "tickets", "spreadsheet",
					fmt.Sprintf("%s references unknown or failed epic %q", child.Label(), child.EpicID), nil)
				logger.Warn("skipping row with unknown epic",
					logging.String("row", child.Label()),
					logging.String("epic_id", child.EpicID),
					logging.String(logging.FieldEventType, "spreadsheet_unknown_epic"),
				)
				outcomes = append(outcomes, Outcome{Ref: child.Label(), Summary: child.Summary, Err: err})
				continue
			}
			child.ParentKey = parent
		}
		outcomes = append(outcomes, s.submit(ctx, logger, child))
	}
	return outcomes, nil
}

func (s *SpreadsheetFlow) submit(ctx context.Context, logger *slog.Logger, d Draft) Outcome {
	outcome := Outcome{Ref: d.Label(), Summary: d.Summary}
	created, err := s.Submitter.CreateIssue(ctx, BuildFields(d, s.Fields))
	if err != nil {
		outcome.Err = fmt.Errorf("%s: %w", d.Label(), err)
		logging.ErrorWithContext(logger, "issue creation failed", "issue_create_failed",
			logging.String("row", d.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
		)
		return outcome
	}
	outcome.TicketKey = created.Key
	outcome.Created = true
	logger.Info("created issue",
		logging.String("row", d.Label()),
		logging.String("ticket_key", created.Key),
		logging.String("issue_type", d.IssueType),
	)
	return outcome
}
