package certpilot

import (
	"context"
	"strings"
	"testing"

	"github.com/certpilot/certpilot/model"
	"github.com/certpilot/certpilot/sqltoolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct{}

func (fakeDB) Query(_ context.Context, sql string, args ...any) (*sqltoolkit.Result, error) {
	switch {
	case strings.Contains(sql, "information_schema.tables"):
		return &sqltoolkit.Result{
			Columns: []string{"table_name"},
			Rows:    []sqltoolkit.Row{{"table_name": "products"}},
			Count:   1,
		}, nil
	case strings.Contains(sql, "information_schema.columns"):
		return &sqltoolkit.Result{
			Columns: []string{"column_name", "data_type", "is_nullable"},
			Rows: []sqltoolkit.Row{
				{"column_name": "name", "data_type": "text", "is_nullable": "NO"},
				{"column_name": "kc_certification", "data_type": "text", "is_nullable": "YES"},
			},
			Count: 2,
		}, nil
	default:
		return &sqltoolkit.Result{
			Columns: []string{"kc_certification"},
			Rows:    []sqltoolkit.Row{{"kc_certification": "KC 어린이제품 안전확인"}},
			Count:   1,
		}, nil
	}
}

func TestNewSQLAssistant_EndToEnd(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueToolCall("call_1", "run_query",
		`{"sql":"SELECT kc_certification FROM products WHERE name = '완구'"}`)
	llm.EnqueueText("완구는 KC 어린이제품 안전확인을 받아야 합니다.")

	assistant, err := NewSQLAssistant(context.Background(), llm, fakeDB{})
	require.NoError(t, err)
	require.NotEmpty(t, assistant.Toolkit.Tools())

	answer, err := assistant.Ask(context.Background(), "완구는 어떤 KC인증을 받아야해?")
	require.NoError(t, err)
	assert.Contains(t, answer, "안전확인")

	// The instruction handed to the model carries the live schema plus the
	// operating rules.
	req := llm.Requests()[0]
	assert.Contains(t, req.Instructions, "kc_certification")
	assert.Contains(t, req.Instructions, "모든 답변은 반드시 한국어로 작성하세요.")
}

func TestNewSupportWorkflow_Defaults(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("reply")
	llm.EnqueueStructured(`{"next_representative":"RESPOND"}`)

	wf, err := NewSupportWorkflow(llm)
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", "안녕하세요")
	require.NoError(t, err)
	assert.Len(t, out.AssistantReplies(), 1)
}
