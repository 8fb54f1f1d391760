package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/certpilot/certpilot/core"
)

// MockModel is a lightweight in-memory Model useful for tests and examples.
//
// Calls are answered in priority order: a scripted response queue first, then
// canned completions keyed by the last user message, then a generated echo.
// Structured-output calls (Request.ResponseSchema set) consume a separate
// queue of raw JSON payloads so routing classifiers can be scripted
// independently of replies.
type MockModel struct {
	mu         sync.Mutex
	info       Info
	script     []*Response
	structured []string
	responses  map[string]string
	requests   []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// EnqueueResponse appends a scripted response consumed in FIFO order by the
// next non-structured Generate call.
func (m *MockModel) EnqueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// EnqueueText is shorthand for scripting a plain text completion.
func (m *MockModel) EnqueueText(text string) {
	m.EnqueueResponse(&Response{Text: text, FinishReason: "stop"})
}

// EnqueueToolCall scripts a response requesting a single tool invocation.
func (m *MockModel) EnqueueToolCall(id, name, arguments string) {
	m.EnqueueResponse(&Response{
		ToolCalls:    []core.ToolCall{{ID: id, Name: name, Arguments: arguments}},
		FinishReason: "tool_calls",
	})
}

// EnqueueStructured appends a raw JSON payload consumed by the next
// structured-output Generate call.
func (m *MockModel) EnqueueStructured(jsonPayload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structured = append(m.structured, jsonPayload)
}

// Requests returns a copy of every Request seen so far, in order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if req.ResponseSchema != nil {
		payload := `{"next_representative":"RESPOND"}`
		if len(m.structured) > 0 {
			payload = m.structured[0]
			m.structured = m.structured[1:]
		}
		return &Response{Text: payload, FinishReason: "stop"}, nil
	}

	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]
		return resp, nil
	}

	input, _ := core.LastOfRole(req.Messages, core.RoleUser)
	if canned, ok := m.responses[input]; ok {
		return &Response{Text: canned, FinishReason: "stop"}, nil
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", input), FinishReason: "stop"}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
