// Package openrouter implements the provider interface against the
// OpenRouter chat-completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to the OpenRouter API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// request is the chat-completions request body.
type request struct {
	Model       string               `json:"model"`
	Messages    []provider.Message   `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature"`
	Tools       []provider.Tool      `json:"tools,omitempty"`
	ToolChoice  *provider.ToolChoice `json:"tool_choice,omitempty"`
	Stream      bool                 `json:"stream,omitempty"`
}

// response is the chat-completions response envelope.
type response struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role      string              `json:"role"`
			Content   string              `json:"content"`
			ToolCalls []provider.ToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient creates an OpenRouter client.
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
func (c *Client) Name() string { return "openrouter" }

// Chat implements provider.Provider.
func (c *Client) Chat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (*provider.ChatResult, error) {
	req := request{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Tools:       opts.Tools,
		ToolChoice:  opts.ToolChoice,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://recipe-importer.app")
	httpReq.Header.Set("X-Title", "Recipe Importer")

	common.LogDebug("sending request to OpenRouter",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		common.LogError("failed to send request to AI service",
			zap.Error(err),
			zap.String("model", req.Model),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	sanitized := sanitizeBody(body)

	if resp.StatusCode != http.StatusOK {
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("model", req.Model),
			zap.String("response", sanitized),
		)
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode, sanitized)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (response: %s)", err, sanitized)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response (response: %s)", sanitized)
	}

	msg := parsed.Choices[0].Message
	common.LogDebug("AI response received",
		zap.String("model", req.Model),
		zap.Int("content_length", len(msg.Content)),
		zap.Int("tool_calls", len(msg.ToolCalls)),
		zap.Int("total_tokens", parsed.Usage.TotalTokens),
	)

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

// sanitizeBody keeps image payloads out of logs and error strings.
func sanitizeBody(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") || strings.Contains(s, "base64,") {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(s) > 2048 {
		return s[:2048] + "...[truncated]"
	}
	return s
}
