package sonar

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ticketsmith/internal/services"
)

const defaultTimeout = 30 * time.Second

// Config captures SonarQube connection settings.
type Config struct {
	BaseURL            string
	Token              string
	TimeoutSeconds     int
	InsecureSkipVerify bool
}

// Finding is a single static-analysis issue.
type Finding struct {
	Key       string `json:"key"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Type      string `json:"type"`
	Component string `json:"component"`
	Project   string `json:"project"`
	Line      int    `json:"line"`
	Message   string `json:"message"`
	Status    string `json:"status"`
}

// Location renders the component and line in the form "path line:N".
func (f Finding) Location() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s line:%d", f.Component, f.Line)
	}
	return f.Component
}

// Client resolves finding keys against the SonarQube web API.
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

// NewClient constructs a SonarQube client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
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

type searchResponse struct {
	Total  int       `json:"total"`
	Issues []Finding `json:"issues"`
}

// Issue fetches the finding identified by key.
func (c *Client) Issue(ctx context.Context, key string) (Finding, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Finding{}, services.Wrap(services.ErrValidation, "sonar", "issue", "finding key required", nil)
	}
	if c.cfg.BaseURL == "" {
		return Finding{}, services.Wrap(services.ErrConfiguration, "sonar", "issue", "base url not configured", nil)
	}
	params := url.Values{"issues": {key}}
	endpoint := c.cfg.BaseURL + "/api/issues/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Finding{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		// SonarQube accepts a user token as the basic-auth login with an empty password.
		req.SetBasicAuth(c.cfg.Token, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Finding{}, services.Wrap(services.ErrExternalService, "sonar", "issue", key, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Finding{}, services.Wrap(services.ErrExternalService, "sonar", "issue", "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Finding{}, services.Wrap(
			services.ErrExternalService,
			"sonar",
			"issue",
			fmt.Sprintf("sonar API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			nil,
		)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Finding{}, services.Wrap(services.ErrExternalService, "sonar", "issue", "parse response", err)
	}
	for _, finding := range parsed.Issues {
		if finding.Key == key {
			return finding, nil
		}
	}
	if len(parsed.Issues) > 0 {
		return parsed.Issues[0], nil
	}
	return Finding{}, services.Wrap(services.ErrNotFound, "sonar", "issue", "no finding with key "+key, nil)
}
