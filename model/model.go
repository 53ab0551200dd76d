package model

import (
	"context"

	"github.com/hupe1980/sqlpilot/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewToolDefinition builds a function-typed tool definition.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Request captures the normalized model input for one turn.
type Request struct {
	Instructions string           `json:"instructions"` // System-level instructions
	Contents     []core.Content   `json:"contents"`     // Full conversation history
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the tagged outcome of one model turn. Exactly two variants
// exist: TextResponse concludes the turn with an answer, ToolCallResponse
// requests tool invocations. Concrete types implement the unexported
// isResponse marker enabling a closed set.
type Response interface{ isResponse() }

// TextResponse concludes a turn with the model's final text.
type TextResponse struct {
	Text string
}

// isResponse implements the Response interface for TextResponse.
func (TextResponse) isResponse() {}

// ToolCallResponse requests tool invocations. Content is the full assistant
// turn (any accompanying text plus the call parts) so it can be appended to
// history verbatim; Calls lists the invocations in the order the model
// issued them.
type ToolCallResponse struct {
	Content core.Content
	Calls   []core.FunctionCall
}

// isResponse implements the Response interface for ToolCallResponse.
func (ToolCallResponse) isResponse() {}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Client is the minimal provider interface the agent loop depends on.
// Generate performs one blocking request/response turn; Ping is the minimal
// credential check used by preflight. Implementations classify provider
// failures into *APIError so retry and abort decisions stay uniform.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Ping performs a minimal request to confirm credentials are valid.
	Ping(ctx context.Context) error

	// Info returns information about the model implementation.
	Info() Info
}
