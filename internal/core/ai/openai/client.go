// Package openai implements the provider interface against the OpenAI
// chat-completions API. The wire format matches the OpenRouter client; only
// the endpoint and authentication differ.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/core/ai/provider"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client talks to the OpenAI API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type request struct {
	Model       string               `json:"model"`
	Messages    []provider.Message   `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature"`
	Tools       []provider.Tool      `json:"tools,omitempty"`
	ToolChoice  *provider.ToolChoice `json:"tool_choice,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content   string              `json:"content"`
			ToolCalls []provider.ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates an OpenAI chat client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "openai" }

// Chat implements provider.Provider.
func (c *Client) Chat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResult, error) {
	body, err := json.Marshal(request{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Tools:       opts.Tools,
		ToolChoice:  opts.ToolChoice,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: API %s", resp.Status)
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("openai: unmarshal response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty response (no choices)")
	}

	msg := parsed.Choices[0].Message
	return &provider.ChatResult{
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
	}, nil
}

// Close implements provider.Provider.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
