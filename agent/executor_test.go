package agent

import (
	"context"
	"testing"

	"github.com/certpilot/certpilot/core"
	"github.com/certpilot/certpilot/model"
	"github.com/certpilot/certpilot/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryTool(t *testing.T, calls *[]map[string]any) tool.Tool {
	t.Helper()
	return tool.NewFunctionTool(
		"run_query",
		"Execute a SQL query",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sql": map[string]any{"type": "string"},
			},
			"required": []string{"sql"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			*calls = append(*calls, args)
			return map[string]any{"rows": []any{map[string]any{"kc_certification": "KC 안전확인"}}}, nil
		},
	)
}

func TestExecutor_ToolCallThenAnswer(t *testing.T) {
	var toolCalls []map[string]any
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueToolCall("call_1", "run_query", `{"sql":"SELECT kc_certification FROM products WHERE name = '완구'"}`)
	llm.EnqueueText("완구는 KC 안전확인 인증을 받아야 합니다.")

	var steps []Step
	ex := New(llm, "system prompt", []tool.Tool{queryTool(t, &toolCalls)}, func(o *Options) {
		o.OnStep = func(s Step) { steps = append(steps, s) }
	})

	result, err := ex.Run(context.Background(), "완구는 어떤 KC인증을 받아야해?")
	require.NoError(t, err)

	assert.Equal(t, "완구는 KC 안전확인 인증을 받아야 합니다.", result.Output)
	require.Len(t, toolCalls, 1)
	assert.Contains(t, toolCalls[0]["sql"], "완구")

	// Transcript: user, assistant tool-call turn, tool result, final answer.
	require.Len(t, result.Messages, 4)
	assert.Equal(t, core.RoleTool, result.Messages[2].Role)
	assert.Equal(t, "call_1", result.Messages[2].ToolCallID)
	assert.Equal(t, core.RoleAssistant, result.Messages[3].Role)

	// Step stream: tool_call, tool_result, answer.
	require.Len(t, steps, 3)
	assert.Equal(t, StepToolCall, steps[0].Kind)
	assert.Equal(t, StepToolResult, steps[1].Kind)
	assert.Equal(t, StepAnswer, steps[2].Kind)

	// The tool set was advertised to the model on every call.
	for _, req := range llm.Requests() {
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "run_query", req.Tools[0].Name)
	}
}

func TestExecutor_BackfillsMissingToolCallIDs(t *testing.T) {
	var toolCalls []map[string]any
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueToolCall("", "run_query", `{"sql":"SELECT 1"}`)
	llm.EnqueueText("done")

	ex := New(llm, "system", []tool.Tool{queryTool(t, &toolCalls)})
	result, err := ex.Run(context.Background(), "q")
	require.NoError(t, err)

	// The assistant tool-call turn must carry the synthesized ID, and the
	// tool result must reference the same ID, so a replayed transcript pairs
	// the two.
	require.Len(t, result.Messages, 4)
	assistantTurn := result.Messages[1]
	require.Len(t, assistantTurn.ToolCalls, 1)
	require.NotEmpty(t, assistantTurn.ToolCalls[0].ID)
	assert.Equal(t, assistantTurn.ToolCalls[0].ID, result.Messages[2].ToolCallID)
}

func TestExecutor_UnknownToolReportedToModel(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueToolCall("call_1", "nonexistent", `{}`)
	llm.EnqueueText("done")

	ex := New(llm, "system", nil)
	result, err := ex.Run(context.Background(), "question")
	require.NoError(t, err)

	assert.Equal(t, "done", result.Output)
	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, core.RoleTool, last.Role)
	assert.Contains(t, last.Content, "unknown tool")
}

func TestExecutor_ToolErrorReturnedAsResult(t *testing.T) {
	failing := tool.NewFunctionTool("boom", "fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, tool.NewToolError("boom", "READ_ONLY", "writes are not allowed")
		})

	llm := model.NewMockModel("mock", "test")
	llm.EnqueueToolCall("call_1", "boom", `{}`)
	llm.EnqueueText("understood")

	ex := New(llm, "system", []tool.Tool{failing})
	result, err := ex.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "understood", result.Output)

	last := llm.Requests()[1].Messages[len(llm.Requests()[1].Messages)-1]
	assert.Contains(t, last.Content, "READ_ONLY")
}

func TestExecutor_MaxIterations(t *testing.T) {
	echo := tool.NewFunctionTool("echo", "echoes",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) { return "ok", nil })

	llm := model.NewMockModel("mock", "test")
	for i := 0; i < 3; i++ {
		llm.EnqueueToolCall("", "echo", `{}`)
	}

	ex := New(llm, "system", []tool.Tool{echo}, func(o *Options) { o.MaxIterations = 2 })
	_, err := ex.Run(context.Background(), "q")
	assert.ErrorIs(t, err, ErrMaxIterations)
}

func TestExecutor_ModelErrorPropagates(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := New(llm, "system", nil)
	_, err := ex.Run(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
