package tickets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"ticketsmith/internal/generation"
	"ticketsmith/internal/ledger"
	"ticketsmith/internal/services"
	"ticketsmith/internal/services/jira"
	"ticketsmith/internal/services/llm"
	"ticketsmith/internal/services/sonar"
)

type countingSubmitter struct {
	calls    int
	payloads []map[string]any
	fail     func(fields map[string]any) error
}

func (c *countingSubmitter) CreateIssue(_ context.Context, fields map[string]any) (jira.Created, error) {
	c.calls++
	c.payloads = append(c.payloads, fields)
	if c.fail != nil {
		if err := c.fail(fields); err != nil {
			return jira.Created{}, err
		}
	}
	return jira.Created{Key: fmt.Sprintf("SEC-%d", c.calls)}, nil
}

type staticSource struct {
	calls    int
	findings map[string]sonar.Finding
}

func (s *staticSource) Issue(_ context.Context, key string) (sonar.Finding, error) {
	s.calls++
	f, ok := s.findings[key]
	if !ok {
		return sonar.Finding{}, services.Wrap(services.ErrNotFound, "sonar", "issue", key, nil)
	}
	return f, nil
}

type stubEnricher struct {
	results []generation.Result
	err     error
}

func (s stubEnricher) Generate(_ context.Context, summaries []string) ([]generation.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results[:len(summaries)], nil
}

type failingLedger struct{}

func (failingLedger) Lookup(string) (ledger.Entry, bool, error) { return ledger.Entry{}, false, nil }

func (failingLedger) Record(string, string) (ledger.Entry, error) {
	return ledger.Entry{}, services.Wrap(services.ErrWrite, "ledger", "record", "disk full", nil)
}

func sampleFinding() sonar.Finding {
	return sonar.Finding{
		Key:       "AYub-1",
		Rule:      "java:S2068",
		Severity:  "CRITICAL",
		Component: "svc:src/Auth.java",
		Line:      42,
		Message:   "Remove this hard-coded password.",
	}
}

func newFindingFlow(t *testing.T, submitter Submitter) (*FindingFlow, *ledger.Store, *staticSource) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.csv"), nil)
	if err != nil {
		t.Fatal(err)
	}
	source := &staticSource{findings: map[string]sonar.Finding{"AYub-1": sampleFinding()}}
	flow := &FindingFlow{
		Ledger:    store,
		Source:    source,
		Submitter: submitter,
		Fields:    FieldConfig{CategoryField: "customfield_15377", CategoryValue: "Review Workspace"},
		Finding:   FindingConfig{Project: "SEC", IssueType: "Bug"},
	}
	return flow, store, source
}

func TestFindingFlowCreatesOnce(t *testing.T) {
	submitter := &countingSubmitter{}
	flow, store, source := newFindingFlow(t, submitter)

	first, err := flow.Create(context.Background(), "AYub-1")
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if !first.Created || first.TicketKey != "SEC-1" {
		t.Fatalf("unexpected first outcome %+v", first)
	}

	second, err := flow.Create(context.Background(), "AYub-1")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.Created || second.TicketKey != "SEC-1" {
		t.Fatalf("expected existing ticket on second call, got %+v", second)
	}

	if submitter.calls != 1 {
		t.Fatalf("expected exactly one submission, got %d", submitter.calls)
	}
	if source.calls != 1 {
		t.Fatalf("expected finding fetched once, got %d", source.calls)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].FindingKey != "AYub-1" || entries[0].TicketKey != "SEC-1" {
		t.Fatalf("expected one ledger entry, got %+v", entries)
	}

	payload := submitter.payloads[0]
	if payload["summary"] != "[Critical] Remove this hard-coded password." {
		t.Fatalf("unexpected summary %v", payload["summary"])
	}
	if !strings.Contains(payload["description"].(string), "Location: svc:src/Auth.java line:42") {
		t.Fatalf("unexpected description %v", payload["description"])
	}
}

func TestFindingFlowSubmissionFailureNotRecorded(t *testing.T) {
	submitter := &countingSubmitter{fail: func(map[string]any) error {
		return services.Wrap(services.ErrExternalService, "jira", "create issue", "400", nil)
	}}
	flow, store, _ := newFindingFlow(t, submitter)

	outcome, err := flow.Create(context.Background(), "AYub-1")
	if !errors.Is(err, services.ErrExternalService) || !outcome.Failed() {
		t.Fatalf("expected submission error, got %v", err)
	}
	if found, _ := store.Exists("AYub-1"); found {
		t.Fatal("failed submission must not be recorded")
	}
}

func TestFindingFlowUnknownFinding(t *testing.T) {
	submitter := &countingSubmitter{}
	flow, _, _ := newFindingFlow(t, submitter)
	_, err := flow.Create(context.Background(), "nope")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if submitter.calls != 0 {
		t.Fatalf("expected no submission, got %d", submitter.calls)
	}
}

func TestFindingFlowLedgerWriteFailureNamesTicket(t *testing.T) {
	submitter := &countingSubmitter{}
	flow, _, _ := newFindingFlow(t, submitter)
	flow.Ledger = failingLedger{}

	outcome, err := flow.Create(context.Background(), "AYub-1")
	if !errors.Is(err, services.ErrWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	if outcome.TicketKey != "SEC-1" || !strings.Contains(err.Error(), "SEC-1") {
		t.Fatalf("error should name the created ticket: %v", err)
	}
}

func TestFindingFlowDryRunSkipsLedger(t *testing.T) {
	var out bytes.Buffer
	flow, store, _ := newFindingFlow(t, NewDryRunSubmitter(&out))
	flow.DryRun = true

	outcome, err := flow.Create(context.Background(), "AYub-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if outcome.TicketKey != "DRYRUN-1" {
		t.Fatalf("unexpected key %s", outcome.TicketKey)
	}
	if found, _ := store.Exists("AYub-1"); found {
		t.Fatal("dry run must not record in ledger")
	}
	if !strings.Contains(out.String(), `"summary": "[Critical] Remove this hard-coded password."`) {
		t.Fatalf("payload not printed: %s", out.String())
	}
}

func TestFindingFlowEnrichment(t *testing.T) {
	submitter := &countingSubmitter{}
	flow, _, _ := newFindingFlow(t, submitter)
	flow.Fields.AcceptanceCriteriaField = "customfield_11930"
	flow.Enricher = stubEnricher{results: []generation.Result{{Description: "As a dev I want no secrets", AcceptanceCriteria: "- password removed"}}}

	if _, err := flow.Create(context.Background(), "AYub-1"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := submitter.payloads[0]
	desc := payload["description"].(string)
	if !strings.HasPrefix(desc, "As a dev I want no secrets") || !strings.Contains(desc, "Rule: java:S2068") {
		t.Fatalf("unexpected description %q", desc)
	}
	if payload["customfield_11930"] != "- password removed" {
		t.Fatalf("unexpected acceptance criteria %v", payload["customfield_11930"])
	}
}

func TestBuildFields(t *testing.T) {
	cfg := FieldConfig{CategoryField: "customfield_15377", CategoryValue: "Review Workspace", AcceptanceCriteriaField: "customfield_11930"}
	fields := BuildFields(Draft{IssueType: "10001", Project: "ABC", Summary: "S", ParentKey: "ABC-1", Description: "D", AcceptanceCriteria: "AC"}, cfg)

	if got := fields["issuetype"].(map[string]string); got["id"] != "10001" {
		t.Fatalf("numeric issue type should use id: %v", got)
	}
	if got := fields["project"].(map[string]string); got["key"] != "ABC" {
		t.Fatalf("unexpected project %v", got)
	}
	if got := fields["customfield_15377"].(map[string]string); got["value"] != "Review Workspace" {
		t.Fatalf("unexpected category %v", got)
	}
	if got := fields["parent"].(map[string]string); got["key"] != "ABC-1" {
		t.Fatalf("unexpected parent %v", got)
	}
	if fields["customfield_11930"] != "AC" || fields["description"] != "D" {
		t.Fatalf("unexpected text fields %v", fields)
	}

	named := BuildFields(Draft{IssueType: "Story", Project: "ABC", Summary: "S", AcceptanceCriteria: "AC"}, FieldConfig{})
	if got := named["issuetype"].(map[string]string); got["name"] != "Story" {
		t.Fatalf("named issue type should use name: %v", got)
	}
	if _, ok := named["parent"]; ok {
		t.Fatal("parent should be omitted when empty")
	}
	if named["description"] != "Acceptance Criteria\nAC" {
		t.Fatalf("criteria should fold into description without a custom field: %q", named["description"])
	}
}

func TestSpreadsheetFlowEpicsFirst(t *testing.T) {
	submitter := &countingSubmitter{}
	flow := &SpreadsheetFlow{Submitter: submitter, Fields: FieldConfig{EpicIssueType: "Epic"}}
	drafts := []Draft{
		{Row: 2, IssueType: "Story", Project: "P", Summary: "child a", EpicID: "E1"},
		{Row: 3, IssueType: "Epic", Project: "P", Summary: "epic one", EpicID: "E1"},
		{Row: 4, IssueType: "Story", Project: "P", Summary: "orphan", EpicID: "E9"},
		{Row: 5, IssueType: "Task", Project: "P", Summary: "standalone"},
	}
	outcomes, err := flow.Create(context.Background(), drafts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Ref != "row 3" || outcomes[0].TicketKey != "SEC-1" {
		t.Fatalf("epic should be created first: %+v", outcomes[0])
	}
	if outcomes[1].TicketKey != "SEC-2" {
		t.Fatalf("unexpected child outcome %+v", outcomes[1])
	}
	parent := submitter.payloads[1]["parent"].(map[string]string)
	if parent["key"] != "SEC-1" {
		t.Fatalf("child should link to epic, got %v", parent)
	}
	if !outcomes[2].Failed() || !errors.Is(outcomes[2].Err, services.ErrValidation) {
		t.Fatalf("orphan should fail with validation error: %+v", outcomes[2])
	}
	if outcomes[3].Failed() || submitter.calls != 3 {
		t.Fatalf("standalone should be created; calls=%d", submitter.calls)
	}
}

func TestSpreadsheetFlowContinuesAfterFailure(t *testing.T) {
	submitter := &countingSubmitter{fail: func(fields map[string]any) error {
		if fields["summary"] == "bad" {
			return errors.New("400 bad request")
		}
		return nil
	}}
	flow := &SpreadsheetFlow{Submitter: submitter}
	outcomes, err := flow.Create(context.Background(), []Draft{
		{Row: 2, IssueType: "Task", Project: "P", Summary: "bad"},
		{Row: 3, IssueType: "Task", Project: "P", Summary: "good"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !outcomes[0].Failed() || outcomes[1].Failed() {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
	if !strings.Contains(outcomes[0].Err.Error(), "row 2") {
		t.Fatalf("error should name the row: %v", outcomes[0].Err)
	}
}

func TestEnrichFillsOnlyMissingDescriptions(t *testing.T) {
	enricher := stubEnricher{results: []generation.Result{
		{Description: "generated", AcceptanceCriteria: "ac"},
		{Failed: true, Description: generation.FailedDescription},
	}}
	drafts := []Draft{
		{Summary: "has text", Description: "keep"},
		{Summary: "needs text"},
		{Summary: "will fail"},
	}
	out, err := Enrich(context.Background(), enricher, drafts)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if out[0].Description != "keep" || out[1].Description != "generated" || out[1].AcceptanceCriteria != "ac" {
		t.Fatalf("unexpected drafts %+v", out)
	}
	if out[2].Description != "" {
		t.Fatalf("failed generation should leave draft unchanged: %+v", out[2])
	}
	if drafts[1].Description != "" {
		t.Fatal("input slice must not be modified")
	}
}

func TestEnrichPropagatesSetupError(t *testing.T) {
	enricher := stubEnricher{err: services.Wrap(services.ErrConfiguration, "generation", "template", "missing", nil)}
	_, err := Enrich(context.Background(), enricher, []Draft{{Summary: "x"}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type countingChatter struct{ calls int }

func (c *countingChatter) Chat(context.Context, llm.ChatRequest) (string, error) {
	c.calls++
	return "User Story\nx\nAcceptance Criteria\ny", nil
}

func TestFindingFlowBadTemplateStopsBeforeLookup(t *testing.T) {
	submitter := &countingSubmitter{}
	flow, _, source := newFindingFlow(t, submitter)
	chatter := &countingChatter{}
	flow.Enricher = generation.NewGenerator(chatter, filepath.Join(t.TempDir(), "missing.txt"), "")

	for _, key := range []string{"AYub-1", "AYub-2"} {
		_, err := flow.Create(context.Background(), key)
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", key, err)
		}
	}
	if source.calls != 0 || submitter.calls != 0 || chatter.calls != 0 {
		t.Fatalf("expected no external calls, got sonar=%d submit=%d chat=%d", source.calls, submitter.calls, chatter.calls)
	}
}
