package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		// Some servers return the streaming schema even when stream=false.
		Delta        chatMessage `json:"delta"`
		Text         string      `json:"text"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// openAIEndpoint accepts either a server root or a full completions URL.
func (c *Client) openAIEndpoint(suffix string) string {
	base := c.cfg.BaseURL
	if suffix == "/chat/completions" && strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	base = strings.TrimSuffix(base, "/chat/completions")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + suffix
}

func (c *Client) sendOpenAI(ctx context.Context, messages []chatMessage) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
	}
	body, err := c.doJSON(ctx, http.MethodPost, c.openAIEndpoint("/chat/completions"), payload)
	if err != nil {
		return "", err
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	content := extractCompletionContent(completion)
	if content == "" {
		return "", &emptyContentError{Op: "chat completion", Snippet: summarizePayloadSnippet(string(body))}
	}
	return content, nil
}

func extractCompletionContent(completion chatCompletionResponse) string {
	for _, choice := range completion.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (c *Client) listOpenAIModels(ctx context.Context) ([]string, error) {
	body, err := c.doJSON(ctx, http.MethodGet, c.openAIEndpoint("/models"), nil)
	if err != nil {
		return nil, err
	}
	var parsed modelListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}
