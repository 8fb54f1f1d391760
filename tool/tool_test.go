package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
}

func TestFunctionTool_Success(t *testing.T) {
	sum := NewFunctionTool("calculate_sum", "Calculate the sum of two numbers", sumSchema(),
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		})

	assert.Equal(t, "calculate_sum", sum.Name())
	assert.NotEmpty(t, sum.Description())

	result, err := sum.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
}

func TestFunctionTool_MissingRequiredArg(t *testing.T) {
	sum := NewFunctionTool("calculate_sum", "sum", sumSchema(),
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })

	_, err := sum.Call(context.Background(), map[string]any{"a": 2.0})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.Equal(t, "calculate_sum", toolErr.Tool)
}

func TestFunctionTool_WrongArgType(t *testing.T) {
	sum := NewFunctionTool("calculate_sum", "sum", sumSchema(),
		func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })

	_, err := sum.Call(context.Background(), map[string]any{"a": "two", "b": 3.0})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_ExecutionErrorWrapped(t *testing.T) {
	failing := NewFunctionTool("boom", "always fails", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("db unreachable")
		})

	_, err := failing.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "db unreachable")
}

func TestFunctionTool_CustomToolErrorPassedThrough(t *testing.T) {
	failing := NewFunctionTool("boom", "fails with code", map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (any, error) {
			return nil, NewToolError("boom", "READ_ONLY", "writes are not allowed")
		})

	_, err := failing.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "READ_ONLY", toolErr.Code)
}

func TestFunctionToolFromStruct_SchemaDerivation(t *testing.T) {
	type queryArgs struct {
		SQL   string `json:"sql" description:"The SQL query to execute"`
		Limit int    `json:"limit,omitempty"`
	}

	qt := NewFunctionToolFromStruct("run_query", "Execute a SQL query", queryArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["sql"], nil
		})

	params := qt.Parameters()
	props, ok := params["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "sql")
	assert.Contains(t, props, "limit")

	required, ok := params["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"sql"}, required)

	_, err := qt.Call(context.Background(), map[string]any{"limit": 5})
	require.Error(t, err)

	result, err := qt.Call(context.Background(), map[string]any{"sql": "SELECT 1"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", result)
}
