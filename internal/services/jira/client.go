package jira

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ticketsmith/internal/services"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultPageSize = 50
	maxSearchPages  = 1000
	userAgent       = "ticketsmith/1.0"
)

// Config captures the settings needed to talk to the Jira REST API (v2).
type Config struct {
	// BaseURL is the REST root, e.g. https://example.atlassian.net/rest/api/2.
	BaseURL                 string
	Email                   string
	APIToken                string
	AcceptanceCriteriaField string
	ReleaseNotesField       string
	TimeoutSeconds          int
	InsecureSkipVerify      bool
}

// Created is the identity returned by a successful issue creation.
type Created struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// Story is an existing ticket flattened to the fields used as prompt examples.
type Story struct {
	Key                string `json:"key"`
	Summary            string `json:"summary"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptance_criteria"`
	ReleaseNotes       string `json:"release_notes"`
}

// Client provides authenticated access to a Jira instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a Jira client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for on-prem instances
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jira API returned %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// CreateIssue posts fields to /issue and returns the created identity.
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (Created, error) {
	var created Created
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return created, fmt.Errorf("marshal create request: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/issue", payload)
	if err != nil {
		return created, services.Wrap(services.ErrExternalService, "jira", "create issue", "", err)
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return created, services.Wrap(services.ErrExternalService, "jira", "create issue", "parse response", err)
	}
	if strings.TrimSpace(created.Key) == "" {
		return created, services.Wrap(services.ErrExternalService, "jira", "create issue", "response missing key: "+snippet(body), nil)
	}
	return created, nil
}

type searchResponse struct {
	StartAt       int    `json:"startAt"`
	MaxResults    int    `json:"maxResults"`
	Total         int    `json:"total"`
	IsLast        *bool  `json:"isLast"`
	NextPageToken string `json:"nextPageToken"`
	Issues        []struct {
		Key    string                     `json:"key"`
		Fields map[string]json.RawMessage `json:"fields"`
	} `json:"issues"`
}

// SearchStories runs jql against /search/jql and returns up to limit stories
// (all matches when limit <= 0). Both token and offset pagination are followed.
func (c *Client) SearchStories(ctx context.Context, jql string, limit int) ([]Story, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, services.Wrap(services.ErrValidation, "jira", "search", "jql required", nil)
	}
	fields := []string{"key", "summary", "description"}
	if c.cfg.AcceptanceCriteriaField != "" {
		fields = append(fields, c.cfg.AcceptanceCriteriaField)
	}
	if c.cfg.ReleaseNotesField != "" {
		fields = append(fields, c.cfg.ReleaseNotesField)
	}

	pageSize := defaultPageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}

	var (
		stories   []Story
		startAt   int
		pageToken string
		prevFirst string
	)
	for pages := 0; pages < maxSearchPages; pages++ {
		params := url.Values{
			"jql":        {jql},
			"fields":     {strings.Join(fields, ",")},
			"maxResults": {strconv.Itoa(pageSize)},
		}
		if pageToken != "" {
			params.Set("nextPageToken", pageToken)
		} else {
			params.Set("startAt", strconv.Itoa(startAt))
		}
		body, err := c.doRequest(ctx, http.MethodGet, c.cfg.BaseURL+"/search/jql?"+params.Encode(), nil)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalService, "jira", "search", "", err)
		}
		var page searchResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, services.Wrap(services.ErrExternalService, "jira", "search", "parse response", err)
		}
		// A server that ignores startAt and the page token keeps returning
		// the same page.
		if len(page.Issues) > 0 {
			if page.Issues[0].Key == prevFirst {
				break
			}
			prevFirst = page.Issues[0].Key
		}
		for _, issue := range page.Issues {
			stories = append(stories, Story{
				Key:                issue.Key,
				Summary:            textValue(issue.Fields["summary"]),
				Description:        textValue(issue.Fields["description"]),
				AcceptanceCriteria: textValue(issue.Fields[c.cfg.AcceptanceCriteriaField]),
				ReleaseNotes:       textValue(issue.Fields[c.cfg.ReleaseNotesField]),
			})
			if limit > 0 && len(stories) >= limit {
				return stories, nil
			}
		}

		if len(page.Issues) == 0 || (page.IsLast != nil && *page.IsLast) {
			break
		}
		if page.NextPageToken != "" {
			pageToken = page.NextPageToken
			continue
		}
		startAt += len(page.Issues)
		if page.IsLast == nil && startAt >= page.Total {
			break
		}
	}
	return stories, nil
}

func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "jira", "request", "base url not configured", nil)
	}
	if c.cfg.APIToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, "jira", "request", "api token not configured", nil)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// IsStatus reports whether err carries a Jira response with the given status code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// textValue flattens the shapes Jira uses for text: plain strings, option
// objects ({"value": ...}), and Atlassian Document Format documents.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var node adfNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if node.Value != "" {
		return node.Value
	}
	var b strings.Builder
	node.collect(&b)
	return strings.TrimSpace(b.String())
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Value   string    `json:"value"`
	Content []adfNode `json:"content"`
}

func (n adfNode) collect(b *strings.Builder) {
	if n.Text != "" {
		b.WriteString(n.Text)
	}
	for _, child := range n.Content {
		child.collect(b)
	}
	switch n.Type {
	case "paragraph", "heading", "listItem":
		b.WriteByte('\n')
	}
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 160 {
		return s[:160] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
