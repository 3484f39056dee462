package generation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ticketsmith/internal/services"
	"ticketsmith/internal/services/llm"
)

type fakeChatter struct {
	calls   int
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeChatter) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, req.UserPrompt)
	return f.reply(req.UserPrompt)
}

type memoryRecorder struct {
	results []Result
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, r Result) error {
	m.results = append(m.results, r)
	return m.err
}

type instantTimer struct{ c chan time.Time }

func (t *instantTimer) Start(time.Duration) {
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func mustTemplate(t *testing.T) Template {
	t.Helper()
	tmpl, err := NewTemplate("Ticket: " + Placeholder)
	if err != nil {
		t.Fatal(err)
	}
	return tmpl
}

func TestGeneratePreservesLengthAndOrder(t *testing.T) {
	chatter := &fakeChatter{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "bad") {
			return "", errors.New("boom")
		}
		name := strings.TrimPrefix(prompt, "Ticket: ")
		return "User Story\nAs " + name + "\nAcceptance Criteria\nDone " + name, nil
	}}
	var out bytes.Buffer
	gen := NewGenerator(chatter, "", "system", WithTemplate(mustTemplate(t)), WithProgressWriter(&out))

	summaries := []string{"alpha", "bad one", "gamma"}
	results, err := gen.Generate(context.Background(), summaries)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != len(summaries) {
		t.Fatalf("got %d results for %d summaries", len(results), len(summaries))
	}
	for i, r := range results {
		if r.Summary != summaries[i] || r.Index != i+1 {
			t.Fatalf("result %d out of order: %+v", i, r)
		}
	}
	if results[0].Description != "As alpha" || results[0].AcceptanceCriteria != "Done alpha" {
		t.Fatalf("unexpected first result %+v", results[0])
	}
	if !results[1].Failed || results[1].Description != FailedDescription || results[1].AcceptanceCriteria != FailedAcceptanceCriteria {
		t.Fatalf("expected placeholder for failed item, got %+v", results[1])
	}
	if results[2].Failed {
		t.Fatalf("third item should succeed: %+v", results[2])
	}

	text := out.String()
	for _, want := range []string{
		"Generating ticket details for 3 ticket(s)",
		"[1/3] Processing: alpha...",
		"[2/3] Processing: bad one...",
		"❌ Failed to generate details: boom",
		"✅ Generated details (runtime:",
		"Completed 2/3 tickets",
		"Total runtime:",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("progress output missing %q:\n%s", want, text)
		}
	}
}

func TestGenerateEmptyInput(t *testing.T) {
	chatter := &fakeChatter{reply: func(string) (string, error) { return "x", nil }}
	var out bytes.Buffer
	gen := NewGenerator(chatter, "", "", WithTemplate(mustTemplate(t)), WithProgressWriter(&out))
	results, err := gen.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != 0 || chatter.calls != 0 {
		t.Fatalf("expected no work, got %d results and %d calls", len(results), chatter.calls)
	}
	if !strings.Contains(out.String(), "WARNING") {
		t.Fatalf("expected warning, got %q", out.String())
	}
}

func TestGenerateTemplateErrorMakesNoCalls(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "template.txt")
	if err := os.WriteFile(path, []byte("no placeholder"), 0o644); err != nil {
		t.Fatal(err)
	}
	client := llm.NewClient(llm.Config{BaseURL: server.URL, Model: "phi3"})
	gen := NewGenerator(client, path, "system")
	_, err := gen.Generate(context.Background(), []string{"a", "b"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected zero backend calls, got %d", hits.Load())
	}
}

func TestGenerateRetryBoundYieldsPlaceholder(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := llm.NewClient(
		llm.Config{BaseURL: server.URL, Model: "phi3"},
		llm.WithRetryMaxAttempts(3),
		llm.WithTimer(&instantTimer{}),
	)
	var out bytes.Buffer
	gen := NewGenerator(client, "", "system", WithTemplate(mustTemplate(t)), WithProgressWriter(&out))
	results, err := gen.Generate(context.Background(), []string{"only"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected exactly 3 backend calls, got %d", hits.Load())
	}
	if len(results) != 1 || !results[0].Failed || results[0].Description != FailedDescription {
		t.Fatalf("expected placeholder result, got %+v", results)
	}
	if !errors.Is(results[0].Err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", results[0].Err)
	}
	if got := strings.Count(out.String(), "[warn] generation call failed"); got != 2 {
		t.Fatalf("expected 2 retry warnings, got %d:\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), "(attempt 1/3)") || !strings.Contains(out.String(), "Retrying in 3s") {
		t.Fatalf("unexpected retry text:\n%s", out.String())
	}
}

func TestGenerateRecordsResults(t *testing.T) {
	chatter := &fakeChatter{reply: func(string) (string, error) { return "plain text", nil }}
	recorder := &memoryRecorder{err: errors.New("disk full")}
	gen := NewGenerator(chatter, "", "", WithTemplate(mustTemplate(t)), WithRecorder(recorder))
	results, err := gen.Generate(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("recorder failure must not fail the batch: %v", err)
	}
	if len(recorder.results) != 2 || len(results) != 2 {
		t.Fatalf("expected 2 recorded results, got %d", len(recorder.results))
	}
	if !results[0].FallbackUsed || results[0].AcceptanceCriteria != FallbackAcceptanceCriteria {
		t.Fatalf("expected fallback parse, got %+v", results[0])
	}
}

func TestGenerateCancelledFillsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chatter := &fakeChatter{reply: func(string) (string, error) {
		cancel()
		return "", context.Canceled
	}}
	gen := NewGenerator(chatter, "", "", WithTemplate(mustTemplate(t)))
	results, err := gen.Generate(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != 3 || chatter.calls != 1 {
		t.Fatalf("got %d results after %d calls", len(results), chatter.calls)
	}
	for _, r := range results {
		if !r.Failed {
			t.Fatalf("expected all failed after cancel: %+v", r)
		}
	}
}

func TestWriteResponses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteResponses(dir, []Result{
		{Index: 1, RawResponse: "first"},
		{Index: 2, RawResponse: "second"},
	})
	if err != nil {
		t.Fatalf("WriteResponses: %v", err)
	}
	if len(paths) != 2 || filepath.Base(paths[1]) != "ticket2.txt" {
		t.Fatalf("unexpected paths %v", paths)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "first" {
		t.Fatalf("read %s: %q %v", paths[0], data, err)
	}
}

type ctxRecorder struct {
	ctxErrs []error
}

func (c *ctxRecorder) Record(ctx context.Context, _ Result) error {
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	return ctx.Err()
}

func TestGenerateArchivesResultFinishedBeforeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chatter := &fakeChatter{reply: func(string) (string, error) {
		cancel()
		return "User Story\nAs a user\nAcceptance Criteria\nIt works", nil
	}}
	recorder := &ctxRecorder{}
	var out bytes.Buffer
	gen := NewGenerator(chatter, "", "", WithTemplate(mustTemplate(t)), WithRecorder(recorder), WithProgressWriter(&out))

	results, err := gen.Generate(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != 2 || results[0].Failed || !results[1].Failed {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(recorder.ctxErrs) != 1 || recorder.ctxErrs[0] != nil {
		t.Fatalf("expected the finished result recorded on a live context, got %v", recorder.ctxErrs)
	}
}

func TestReadyReportsTemplateProblems(t *testing.T) {
	chatter := &fakeChatter{}
	missing := NewGenerator(chatter, filepath.Join(t.TempDir(), "missing.txt"), "")
	if err := missing.Ready(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := NewGenerator(nil, "", "", WithTemplate(mustTemplate(t))).Ready(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing backend error, got %v", err)
	}
	if err := NewGenerator(chatter, "", "", WithTemplate(mustTemplate(t))).Ready(); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if chatter.calls != 0 {
		t.Fatalf("Ready must not call the backend, got %d calls", chatter.calls)
	}
}
