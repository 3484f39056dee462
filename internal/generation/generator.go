package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"ticketsmith/internal/logging"
	"ticketsmith/internal/progress"
	"ticketsmith/internal/services"
	"ticketsmith/internal/services/llm"
)

const (
	// FailedDescription replaces the description when generation fails.
	FailedDescription = "Failed to generate description"
	// FailedAcceptanceCriteria replaces the acceptance criteria when generation fails.
	FailedAcceptanceCriteria = "Failed to generate acceptance criteria"

	summaryPreviewRunes = 60
	rule                = "============================================================"
)

// Chatter is the backend used to turn a rendered prompt into text.
type Chatter interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
}

// Recorder persists results for later inspection. Failures are logged and
// never affect the batch.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Result is the outcome for one summary.
type Result struct {
	Index              int
	Summary            string
	Description        string
	AcceptanceCriteria string
	RawResponse        string
	FallbackUsed       bool
	Failed             bool
	Err                error
	Duration           time.Duration
}

// Generator runs summaries through a template and a chat backend.
type Generator struct {
	client       Chatter
	templatePath string
	template     *Template
	systemPrompt string
	model        string
	out          io.Writer
	animate      bool
	logger       *slog.Logger
	recorder     Recorder
	now          func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTemplate uses an already validated template instead of reading templatePath.
func WithTemplate(t Template) Option {
	return func(g *Generator) {
		g.template = &t
	}
}

// WithProgressWriter sets where human-readable progress text goes. The dot
// animation is only drawn when w is a terminal.
func WithProgressWriter(w io.Writer) Option {
	return func(g *Generator) {
		if w != nil {
			g.out = w
			g.animate = progress.IsInteractive(w)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithRecorder attaches a result recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		g.recorder = r
	}
}

// WithModelName sets the model name shown in the progress header.
func WithModelName(model string) Option {
	return func(g *Generator) {
		g.model = model
	}
}

// WithClock overrides the time source used for runtimes.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator returns a Generator. templatePath is read on every Generate
// call unless WithTemplate is supplied.
func NewGenerator(client Chatter, templatePath, systemPrompt string, opts ...Option) *Generator {
	g := &Generator{
		client:       client,
		templatePath: templatePath,
		systemPrompt: systemPrompt,
		out:          io.Discard,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "generation")
	return g
}

// Generate returns one Result per summary in input order. A template problem
// is returned before any backend call; per-summary failures become
// placeholder results and do not stop the batch.
func (g *Generator) Generate(ctx context.Context, summaries []string) ([]Result, error) {
	tmpl, err := g.prepare()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(g.out, "WARNING: no summaries provided, nothing to generate")
		logging.WarnWithContext(g.logger, "no summaries to generate", "generation_empty_input",
			logging.String(logging.FieldImpact, "no tickets generated"),
			logging.String(logging.FieldErrorHint, "check the input file has semicolon-separated summaries"),
		)
		return []Result{}, nil
	}

	total := len(summaries)
	fmt.Fprintf(g.out, "\n%s\n", rule)
	if g.model != "" {
		fmt.Fprintf(g.out, "Generating ticket details for %d ticket(s) using %s\n", total, g.model)
	} else {
		fmt.Fprintf(g.out, "Generating ticket details for %d ticket(s)\n", total)
	}
	fmt.Fprintln(g.out, rule)

	batchStart := g.now()
	results := make([]Result, 0, total)
	succeeded := 0
	for idx, summary := range summaries {
		position := idx + 1
		itemCtx := services.WithItemIndex(ctx, position)
		fmt.Fprintf(g.out, "\n[%d/%d] Processing: %s...\n", position, total, preview(summary))

		result := g.generateOne(itemCtx, tmpl, position, total, summary)
		results = append(results, result)
		if !result.Failed {
			succeeded++
		}
		g.record(itemCtx, result)

		if ctx.Err() != nil {
			for rest := position; rest < total; rest++ {
				results = append(results, failedResult(rest+1, summaries[rest], ctx.Err(), 0))
			}
			break
		}
	}

	elapsed := g.now().Sub(batchStart)
	fmt.Fprintf(g.out, "\n%s\n", rule)
	fmt.Fprintf(g.out, "Completed %d/%d tickets\n", succeeded, total)
	fmt.Fprintf(g.out, "Total runtime: %.2fs\n", elapsed.Seconds())
	fmt.Fprintf(g.out, "%s\n\n", rule)
	g.logger.Info("generation batch finished",
		logging.Int("total", total),
		logging.Int("succeeded", succeeded),
		logging.String("runtime", fmt.Sprintf("%.2fs", elapsed.Seconds())),
	)
	return results, nil
}

func (g *Generator) generateOne(ctx context.Context, tmpl Template, position, total int, summary string) Result {
	start := g.now()
	logger := logging.WithContext(ctx, g.logger)

	prompt, err := tmpl.Render(summary)
	if err != nil {
		return g.fail(logger, position, summary, err, g.now().Sub(start))
	}

	var indicator *progress.Reporter
	if g.animate {
		indicator = progress.New(g.out, fmt.Sprintf("Generating ticket %d/%d", position, total))
		indicator.Start()
	}
	reply, err := g.client.Chat(ctx, llm.ChatRequest{
		SystemPrompt: g.systemPrompt,
		UserPrompt:   prompt,
		OnRetry: func(ev llm.RetryEvent) {
			if indicator != nil {
				indicator.Stop(true)
			}
			fmt.Fprintf(g.out, "[warn] generation call failed (attempt %d/%d): %v. Retrying in %s...\n",
				ev.Attempt, ev.MaxAttempts, ev.Err, formatDelay(ev.Delay))
			logger.Warn("generation attempt failed",
				logging.Int("attempt", ev.Attempt),
				logging.Int("max_attempts", ev.MaxAttempts),
				logging.Error(ev.Err),
				logging.String(logging.FieldEventType, "generation_retry"),
			)
			if indicator != nil {
				indicator.Start()
			}
		},
	})
	if indicator != nil {
		indicator.Stop(true)
	}
	elapsed := g.now().Sub(start)
	if err != nil {
		return g.fail(logger, position, summary, err, elapsed)
	}

	parsed := ParseResponse(reply)
	if parsed.FallbackUsed {
		logger.Debug("reply had no recognizable sections, using whole text as description")
	}
	fmt.Fprintf(g.out, "✅ Generated details (runtime: %.2fs)\n", elapsed.Seconds())
	return Result{
		Index:              position,
		Summary:            summary,
		Description:        parsed.Description,
		AcceptanceCriteria: parsed.AcceptanceCriteria,
		RawResponse:        reply,
		FallbackUsed:       parsed.FallbackUsed,
		Duration:           elapsed,
	}
}

func (g *Generator) fail(logger *slog.Logger, position int, summary string, err error, elapsed time.Duration) Result {
	fmt.Fprintf(g.out, "❌ Failed to generate details: %v (runtime: %.2fs)\n", err, elapsed.Seconds())
	logging.ErrorWithContext(logger, "generation failed", "generation_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, "check the model server is running and the model is pulled"),
	)
	return failedResult(position, summary, err, elapsed)
}

func failedResult(position int, summary string, err error, elapsed time.Duration) Result {
	raw := ""
	if err != nil {
		raw = err.Error()
	}
	return Result{
		Index:              position,
		Summary:            summary,
		Description:        FailedDescription,
		AcceptanceCriteria: FailedAcceptanceCriteria,
		RawResponse:        raw,
		Failed:             true,
		Err:                err,
		Duration:           elapsed,
	}
}

// Ready reports a configuration problem (unusable template or no backend)
// without contacting the backend.
func (g *Generator) Ready() error {
	_, err := g.prepare()
	return err
}

func (g *Generator) prepare() (Template, error) {
	tmpl, err := g.loadTemplate()
	if err != nil {
		return Template{}, err
	}
	if g.client == nil {
		return Template{}, services.Wrap(services.ErrConfiguration, "generation", "generate", "no backend configured", nil)
	}
	return tmpl, nil
}

func (g *Generator) loadTemplate() (Template, error) {
	if g.template != nil {
		return *g.template, nil
	}
	return LoadTemplate(g.templatePath)
}

func (g *Generator) record(ctx context.Context, result Result) {
	if g.recorder == nil {
		return
	}
	// Results finished before a cancellation are still archived.
	if err := g.recorder.Record(context.WithoutCancel(ctx), result); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "failed to archive generation result", "archive_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "result missing from history"),
		)
	}
}

func preview(summary string) string {
	summary = strings.TrimSpace(summary)
	runes := []rune(summary)
	if len(runes) > summaryPreviewRunes {
		return string(runes[:summaryPreviewRunes])
	}
	return summary
}

func formatDelay(d time.Duration) string {
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}
