// Package provider defines the LLM capability the pipeline depends on. The
// pipeline never imports a vendor SDK; it speaks this interface, which at
// least two providers implement (OpenRouter and OpenAI).
package provider

import (
	"context"
	"encoding/json"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message with polymorphic content blocks.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// TextMessage is a convenience constructor for a plain-text message.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []Content{{Type: "text", Text: text}},
	}
}

// Content is one content block: text or image_url.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference (https URL or data URI).
type ImageURL struct {
	URL string `json:"url"`
}

// Tool declares one callable function with a JSON-schema parameter contract.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the schema half of a tool declaration.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolChoice forces the model to call one specific function.
type ToolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// ForceTool builds a ToolChoice that requires a call to the named function.
func ForceTool(name string) *ToolChoice {
	tc := &ToolChoice{Type: "function"}
	tc.Function.Name = name
	return tc
}

// ToolCall is one function invocation in a model response. Arguments is the
// raw JSON string the model produced; callers parse it defensively.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatOptions configures one chat request.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Tools       []Tool
	ToolChoice  *ToolChoice
}

// ChatResult is the provider-neutral response: plain content, tool calls,
// or both.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// FirstToolCall returns the arguments of the first call to the named
// function, or false when the model did not call it.
func (r *ChatResult) FirstToolCall(name string) (string, bool) {
	for _, tc := range r.ToolCalls {
		if tc.Function.Name == name {
			return tc.Function.Arguments, true
		}
	}
	return "", false
}

// Provider is the LLM capability the pipeline consumes.
type Provider interface {
	// Chat sends a chat-completion request. When opts forces a tool choice
	// the response should carry the corresponding tool call; callers treat
	// its absence as ErrNoStructuredResponse.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error)

	// Name identifies the provider in logs.
	Name() string

	// Close releases the provider's connections.
	Close() error
}
