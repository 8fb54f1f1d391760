// Package model defines the provider-neutral language model contract used by
// agents and workflow steps, plus a scriptable MockModel for tests. Concrete
// adapters live in the openai and anthropic subpackages.
package model

import (
	"context"

	"github.com/certpilot/certpilot/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures one normalized model call. Instructions become the system
// prompt; Messages carry the conversation history in order. When
// ResponseSchema is set the model is constrained to emit a single JSON object
// matching the schema (structured output).
type Request struct {
	Instructions   string           `json:"instructions"`
	Messages       []core.Message   `json:"messages"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	ResponseName   string           `json:"response_name,omitempty"`
	ResponseSchema map[string]any   `json:"response_schema,omitempty"`
}

// TokenUsage captures token accounting for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete result of a model call. Text and ToolCalls may
// both be present when the provider interleaves them.
type Response struct {
	Text         string          `json:"text"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"`
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate
// blocks until the provider returns; cancellation is the caller's context.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
