// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (database queries, computations, APIs) with
// schema validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/certpilot/certpilot/internal/schema"
)

// Tool is a callable capability exposed to a language model.
//
// Implementations should provide a descriptive snake_case name, a description
// the model can use to decide when to call the tool, and a JSON object schema
// for the accepted arguments. Call receives arguments already decoded from
// the model's JSON payload.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. The returned value must be JSON-serializable.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError re-exports the schema validation error type.
type ValidationError = schema.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents a failure during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, code, message string) *ToolError {
	return &ToolError{Tool: tool, Code: code, Message: message}
}
