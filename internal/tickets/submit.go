package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"ticketsmith/internal/services/jira"
)

// Submitter creates issues.
type Submitter interface {
	CreateIssue(ctx context.Context, fields map[string]any) (jira.Created, error)
}

// DryRunSubmitter prints each payload instead of sending it and returns
// synthetic keys (DRYRUN-1, DRYRUN-2, ...).
type DryRunSubmitter struct {
	mu  sync.Mutex
	w   io.Writer
	seq int
}

// NewDryRunSubmitter returns a submitter that writes payloads to w.
func NewDryRunSubmitter(w io.Writer) *DryRunSubmitter {
	if w == nil {
		w = io.Discard
	}
	return &DryRunSubmitter{w: w}
}

// CreateIssue implements Submitter.
func (d *DryRunSubmitter) CreateIssue(_ context.Context, fields map[string]any) (jira.Created, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	key := fmt.Sprintf("DRYRUN-%d", d.seq)
	encoded, err := json.MarshalIndent(map[string]any{"fields": fields}, "", "  ")
	if err != nil {
		return jira.Created{}, fmt.Errorf("encode payload: %w", err)
	}
	fmt.Fprintf(d.w, "--- %s (not submitted)\n%s\n", key, encoded)
	return jira.Created{Key: key}, nil
}
