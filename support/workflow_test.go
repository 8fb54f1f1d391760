package support

import (
	"context"
	"testing"

	"github.com/certpilot/certpilot/core"
	"github.com/certpilot/certpilot/graph"
	"github.com/certpilot/certpilot/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const powerToolQuestion = "교류전원을 사용하는 전동공구를 수입하려고 하는데 어떤 인증이 필요한가요?"

func TestRoute(t *testing.T) {
	edge, err := Route(context.Background(), core.State{NextRepresentative: core.RouteCertification})
	require.NoError(t, err)
	assert.Equal(t, EdgeCertification, edge)

	edge, err = Route(context.Background(), core.State{NextRepresentative: core.RouteRespond})
	require.NoError(t, err)
	assert.Equal(t, EdgeConversational, edge)
}

func TestWorkflow_CertificationPathYieldsTwoAssistantReplies(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("전문 상담원에게 연결해 드리겠습니다.")
	llm.EnqueueStructured(`{"next_representative":"CERTIFICATION"}`)
	llm.EnqueueText("교류전원 전동공구는 KC 안전인증 대상입니다.")

	wf, err := NewWorkflow(llm)
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", powerToolQuestion)
	require.NoError(t, err)

	replies := out.AssistantReplies()
	require.Len(t, replies, 2)
	assert.Equal(t, "전문 상담원에게 연결해 드리겠습니다.", replies[0])
	assert.Equal(t, "교류전원 전동공구는 KC 안전인증 대상입니다.", replies[1])
	assert.Equal(t, core.RouteCertification, out.NextRepresentative)
}

func TestWorkflow_RespondPathEndsAfterInitialReply(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("안녕하세요, 무엇을 도와드릴까요?")
	llm.EnqueueStructured(`{"next_representative":"RESPOND"}`)

	wf, err := NewWorkflow(llm)
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", "안녕하세요")
	require.NoError(t, err)

	require.Len(t, out.AssistantReplies(), 1)
	assert.Equal(t, core.RouteRespond, out.NextRepresentative)
}

func TestWorkflow_CertificationCallStripsTrailingAssistantTurn(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("initial reply")
	llm.EnqueueStructured(`{"next_representative":"CERTIFICATION"}`)
	llm.EnqueueText("certification reply")

	wf, err := NewWorkflow(llm)
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", powerToolQuestion)
	require.NoError(t, err)

	reqs := llm.Requests()
	// Reply call, classification call, certification call.
	require.Len(t, reqs, 3)

	certReq := reqs[2]
	require.NotEmpty(t, certReq.Messages)
	last := certReq.Messages[len(certReq.Messages)-1]
	assert.Equal(t, core.RoleUser, last.Role)
	assert.Equal(t, powerToolQuestion, last.Content)

	// The state still carries the stripped frontline reply.
	assert.Len(t, out.AssistantReplies(), 2)
}

func TestWorkflow_UnknownLabelFallsBackToConversational(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("reply")
	llm.EnqueueStructured(`{"next_representative":"BILLING"}`)

	wf, err := NewWorkflow(llm)
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", "환불해 주세요")
	require.NoError(t, err)

	assert.Equal(t, core.RouteRespond, out.NextRepresentative)
	assert.Len(t, out.AssistantReplies(), 1)
}

func TestWorkflow_MalformedClassificationFails(t *testing.T) {
	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("reply")
	llm.EnqueueStructured(`not json`)

	wf, err := NewWorkflow(llm)
	require.NoError(t, err)

	_, err = wf.Invoke(context.Background(), "thread-1", "question")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse routing classification")
}

func TestWorkflow_ThreadResumesCheckpointedHistory(t *testing.T) {
	saver := graph.NewMemorySaver[core.State]()

	llm := model.NewMockModel("mock", "test")
	llm.EnqueueText("first reply")
	llm.EnqueueStructured(`{"next_representative":"RESPOND"}`)
	llm.EnqueueText("second reply")
	llm.EnqueueStructured(`{"next_representative":"RESPOND"}`)

	wf, err := NewWorkflow(llm, func(o *Options) { o.Checkpointer = saver })
	require.NoError(t, err)

	_, err = wf.Invoke(context.Background(), "thread-1", "첫 번째 질문")
	require.NoError(t, err)

	out, err := wf.Invoke(context.Background(), "thread-1", "두 번째 질문")
	require.NoError(t, err)

	// Resumed history: user1, assistant1, user2, assistant2.
	require.Len(t, out.Messages, 4)
	assert.Equal(t, "첫 번째 질문", out.Messages[0].Content)
	assert.Equal(t, "두 번째 질문", out.Messages[2].Content)
	assert.Equal(t, []string{"first reply", "second reply"}, out.AssistantReplies())
}

func TestWorkflow_SeparateClassifierModel(t *testing.T) {
	replier := model.NewMockModel("replier", "test")
	replier.EnqueueText("reply")

	classifier := model.NewMockModel("classifier", "test")
	classifier.EnqueueStructured(`{"next_representative":"RESPOND"}`)

	wf, err := NewWorkflow(replier, func(o *Options) { o.Classifier = classifier })
	require.NoError(t, err)

	_, err = wf.Invoke(context.Background(), "t", "q")
	require.NoError(t, err)

	require.Len(t, classifier.Requests(), 1)
	req := classifier.Requests()[0]
	assert.NotNil(t, req.ResponseSchema)
	// The classification task is appended as the final user turn.
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, core.RoleUser, last.Role)
	assert.Equal(t, routingTrailingInstruction, last.Content)
}
