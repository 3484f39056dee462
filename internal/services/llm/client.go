package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ticketsmith/internal/services"
)

const (
	// APIOllama selects the native Ollama /api/chat endpoint.
	APIOllama = "ollama"
	// APIOpenAI selects an OpenAI-compatible chat completions endpoint.
	APIOpenAI = "openai"

	defaultHTTPTimeout    = 300 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 3 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// Config captures the runtime settings required to talk to the backend.
type Config struct {
	API            string
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	TimeoutSeconds int
}

// Client issues chat requests against a local or remote language model.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	timer            backoff.Timer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the total number of attempts per request (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the linear backoff base and cap.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithTimer overrides how retry waits are performed (useful for tests).
func WithTimer(timer backoff.Timer) Option {
	return func(c *Client) {
		c.timer = timer
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	api := strings.ToLower(strings.TrimSpace(cfg.API))
	if api == "" {
		api = APIOllama
	}
	client := &Client{
		cfg: Config{
			API:            api,
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			Temperature:    cfg.Temperature,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// MaxAttempts returns the number of attempts a single Chat call may make.
func (c *Client) MaxAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// RetryEvent describes a failed attempt that will be retried.
type RetryEvent struct {
	Attempt     int
	MaxAttempts int
	Err         error
	Delay       time.Duration
}

// ChatRequest is a single system+user exchange.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	// OnRetry, when set, is called before each wait between attempts.
	OnRetry func(RetryEvent)
}

type emptyContentError struct {
	Op      string
	Snippet string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (response_snippet=%s)", e.Op, e.Snippet)
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Chat sends the prompts and returns the assistant reply. Failed attempts are
// retried with a linear delay (attempt × base, capped). Only context
// cancellation stops the loop early. The final error wraps services.ErrTransient.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	userPrompt := strings.TrimSpace(req.UserPrompt)
	if userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "chat", "user prompt required", nil)
	}
	if c.cfg.BaseURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "chat", "base url required", nil)
	}
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	maxAttempts := c.MaxAttempts()
	attempt := 0
	var content string
	operation := func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		reply, err := c.send(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		content = reply
		return nil
	}
	notify := func(err error, delay time.Duration) {
		if req.OnRetry != nil {
			req.OnRetry(RetryEvent{Attempt: attempt, MaxAttempts: maxAttempts, Err: err, Delay: delay})
		}
	}

	policy := backoff.WithContext(newLinearBackOff(c.retryBaseDelay, c.retryMaxDelay, maxAttempts), ctx)
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, c.timer)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	return "", services.Wrap(
		services.ErrTransient,
		"llm",
		"chat",
		fmt.Sprintf("failed after %d attempts", attempt),
		err,
	)
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (string, error) {
	switch c.cfg.API {
	case APIOpenAI:
		return c.sendOpenAI(ctx, messages)
	default:
		return c.sendOllama(ctx, messages)
	}
}

// HealthCheck verifies the backend is reachable and serves the configured model.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "llm", "health", "base url required", nil)
	}
	var (
		models []string
		err    error
	)
	switch c.cfg.API {
	case APIOpenAI:
		models, err = c.listOpenAIModels(ctx)
	default:
		models, err = c.listOllamaModels(ctx)
	}
	if err != nil {
		return services.Wrap(services.ErrExternalService, "llm", "health", "list models", err)
	}
	if c.cfg.Model == "" {
		return nil
	}
	for _, name := range models {
		if modelMatches(name, c.cfg.Model) {
			return nil
		}
	}
	return services.Wrap(
		services.ErrConfiguration,
		"llm",
		"health",
		fmt.Sprintf("model %q not available (have %s)", c.cfg.Model, strings.Join(models, ", ")),
		nil,
	)
}

func modelMatches(available, wanted string) bool {
	if strings.EqualFold(available, wanted) {
		return true
	}
	if !strings.Contains(wanted, ":") && strings.EqualFold(available, wanted+":latest") {
		return true
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("llm request: encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return data, &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
