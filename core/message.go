package core

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks instruction messages injected by the application.
	RoleSystem Role = "system"
	// RoleUser marks end-user messages.
	RoleUser Role = "user"
	// RoleAssistant marks model-generated messages.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results fed back to the model.
	RoleTool Role = "tool"
)

// ToolCall describes a tool invocation requested by the model. Arguments is
// the serialized JSON argument payload as produced by the provider.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is a single role-tagged entry in a conversation history. It covers
// plain text turns as well as assistant tool-call turns (ToolCalls set) and
// tool result turns (ToolCallID / ToolName set).
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// SystemMessage constructs a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage constructs a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage constructs an assistant-role text message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage constructs a tool-role message carrying the result of the
// tool call identified by callID.
func ToolResultMessage(callID, toolName, result string) Message {
	return Message{Role: RoleTool, Content: result, ToolCallID: callID, ToolName: toolName}
}

// Append returns a new history slice with msgs appended. The input slice is
// never mutated, so histories can be shared between workflow steps without
// aliasing surprises.
func Append(history []Message, msgs ...Message) []Message {
	out := make([]Message, 0, len(history)+len(msgs))
	out = append(out, history...)
	out = append(out, msgs...)
	return out
}

// TrimTrailingAssistant returns history without its final entry when that
// entry is assistant-authored. Exactly one entry is removed; a user-authored
// tail is left untouched. The input slice is never mutated.
func TrimTrailingAssistant(history []Message) []Message {
	if n := len(history); n > 0 && history[n-1].Role == RoleAssistant {
		out := make([]Message, n-1)
		copy(out, history[:n-1])
		return out
	}
	return history
}

// LastOfRole returns the content of the most recent message with the given
// role, or empty string when none exists.
func LastOfRole(history []Message, role Role) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == role {
			return history[i].Content, true
		}
	}
	return "", false
}
