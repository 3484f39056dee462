package tickets

import (
	"context"

	"ticketsmith/internal/generation"
)

// Enricher fills in ticket text from short summaries.
type Enricher interface {
	Generate(ctx context.Context, summaries []string) ([]generation.Result, error)
}

// Enrich generates description and acceptance criteria for drafts that have
// no description. Failed generations leave the draft unchanged. Only errors
// that stop the whole batch, such as a bad template, are returned.
func Enrich(ctx context.Context, enricher Enricher, drafts []Draft) ([]Draft, error) {
	if enricher == nil {
		return drafts, nil
	}
	var (
		indexes   []int
		summaries []string
	)
	for i, d := range drafts {
		if d.Description == "" {
			indexes = append(indexes, i)
			summaries = append(summaries, d.Summary)
		}
	}
	if len(summaries) == 0 {
		return drafts, nil
	}
	results, err := enricher.Generate(ctx, summaries)
	if err != nil {
		return drafts, err
	}
	out := append([]Draft(nil), drafts...)
	for n, idx := range indexes {
		if n >= len(results) || results[n].Failed {
			continue
		}
		out[idx].Description = results[n].Description
		if out[idx].AcceptanceCriteria == "" {
			out[idx].AcceptanceCriteria = results[n].AcceptanceCriteria
		}
	}
	return out, nil
}
