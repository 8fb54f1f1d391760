// Package agent implements the tool-calling executor that binds a language
// model to a set of tools and an instruction, looping until the model
// produces a final answer or the iteration budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/certpilot/certpilot/core"
	"github.com/certpilot/certpilot/logging"
	"github.com/certpilot/certpilot/model"
	"github.com/certpilot/certpilot/tool"
)

// ErrMaxIterations is returned when the model keeps requesting tool calls
// past the configured iteration budget.
var ErrMaxIterations = fmt.Errorf("agent: max iterations reached without a final answer")

// StepKind categorizes executor progress steps.
type StepKind string

const (
	// StepToolCall is emitted when the model requests a tool invocation.
	StepToolCall StepKind = "tool_call"
	// StepToolResult is emitted when a tool invocation completes.
	StepToolResult StepKind = "tool_result"
	// StepAnswer is emitted with the model's final answer.
	StepAnswer StepKind = "answer"
)

// Step is a progress notification delivered to the OnStep callback as the
// executor works through the reasoning / tool-call loop.
type Step struct {
	Kind     StepKind
	ToolCall core.ToolCall
	Result   string
	Text     string
}

// Options configure an Executor.
type Options struct {
	// MaxIterations bounds the number of model calls in one Run.
	MaxIterations int
	Logger        logging.Logger
	// OnStep, when set, receives a Step for every tool call, tool result and
	// the final answer. Useful for streaming progress to a console.
	OnStep func(step Step)
}

// RunResult is the outcome of one executor run.
type RunResult struct {
	RunID    string
	Output   string
	Messages []core.Message
}

// Executor drives a tool-calling conversation loop over a model.
type Executor struct {
	llm         model.Model
	instruction string
	tools       map[string]tool.Tool
	defs        []model.ToolDefinition
	opts        Options
}

// New constructs an Executor with the given model, system instruction and tool set.
func New(llm model.Model, instruction string, tools []tool.Tool, optFns ...func(o *Options)) *Executor {
	opts := Options{MaxIterations: 10, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]tool.Tool, len(tools))
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return &Executor{
		llm:         llm,
		instruction: instruction,
		tools:       byName,
		defs:        defs,
		opts:        opts,
	}
}

// Run answers a single user input, executing tool calls as the model requests
// them. The returned RunResult carries the full transcript including tool
// turns. Model failures propagate unwrapped beyond context annotation; there
// is no retry.
func (e *Executor) Run(ctx context.Context, input string) (*RunResult, error) {
	logger := logging.OrNoOp(e.opts.Logger)
	runID := core.NewID()
	history := []core.Message{core.UserMessage(input)}

	logger.Debug("agent.run.start", "run_id", runID, "model", e.llm.Info().Name)

	for i := 0; i < e.opts.MaxIterations; i++ {
		resp, err := e.llm.Generate(ctx, model.Request{
			Instructions: e.instruction,
			Messages:     history,
			Tools:        e.defs,
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			e.emit(Step{Kind: StepAnswer, Text: resp.Text})
			logger.Debug("agent.run.complete", "run_id", runID, "iterations", i+1)
			return &RunResult{
				RunID:    runID,
				Output:   resp.Text,
				Messages: core.Append(history, core.AssistantMessage(resp.Text)),
			}, nil
		}

		// Backfill missing tool call IDs before recording the assistant turn,
		// so a replayed transcript pairs every tool result with its call.
		calls := make([]core.ToolCall, len(resp.ToolCalls))
		copy(calls, resp.ToolCalls)
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = core.NewID()
			}
		}

		assistantTurn := core.Message{
			Role:      core.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: calls,
		}
		history = core.Append(history, assistantTurn)

		for _, call := range calls {
			e.emit(Step{Kind: StepToolCall, ToolCall: call})

			result := e.executeTool(ctx, call, logger)
			e.emit(Step{Kind: StepToolResult, ToolCall: call, Result: result})
			history = core.Append(history, core.ToolResultMessage(call.ID, call.Name, result))
		}
	}

	return nil, ErrMaxIterations
}

// executeTool runs one tool call and serializes the outcome for the model.
// Tool failures come back as text so the model can observe and recover; only
// the transport to the model stays on the error-free path.
func (e *Executor) executeTool(ctx context.Context, call core.ToolCall, logger logging.Logger) string {
	t, ok := e.tools[call.Name]
	if !ok {
		logger.Warn("agent.tool.unknown", "tool", call.Name)
		return fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			logger.Warn("agent.tool.bad_arguments", "tool", call.Name, "error", err)
			return fmt.Sprintf(`{"error":"invalid arguments: %s"}`, err)
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		logger.Warn("agent.tool.error", "tool", call.Name, "error", err)
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":"unserializable tool result: %s"}`, err)
	}
	logger.Info("agent.tool.success", "tool", call.Name)
	return string(payload)
}

func (e *Executor) emit(step Step) {
	if e.opts.OnStep != nil {
		e.opts.OnStep(step)
	}
}
