package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func (c *Client) sendOllama(ctx context.Context, messages []chatMessage) (string, error) {
	payload := ollamaChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   false,
		Options:  ollamaOptions{Temperature: c.cfg.Temperature},
	}
	body, err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", payload)
	if err != nil {
		return "", err
	}
	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(parsed.Error))
	}
	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", &emptyContentError{Op: "ollama chat", Snippet: summarizePayloadSnippet(string(body))}
	}
	return content, nil
}

func (c *Client) listOllamaModels(ctx context.Context) ([]string, error) {
	body, err := c.doJSON(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	var parsed ollamaTagsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
