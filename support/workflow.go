// Package support implements the two-node customer support routing workflow:
// an initial-support node that replies and classifies the next
// representative, and a certification-support node that re-answers with the
// specialized certification prompt. A conditional edge routes between them
// based on the classification label.
package support

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/certpilot/certpilot/core"
	"github.com/certpilot/certpilot/graph"
	"github.com/certpilot/certpilot/logging"
	"github.com/certpilot/certpilot/model"
)

// Node and edge names of the support graph.
const (
	NodeInitialSupport       = "initial_support"
	NodeCertificationSupport = "certification_support"

	EdgeCertification  = "certification"
	EdgeConversational = "conversational"
)

// Options configure workflow construction.
type Options struct {
	// Classifier handles the structured routing call; defaults to the reply
	// model when nil.
	Classifier model.Model
	// Checkpointer stores conversation state per thread; defaults to an
	// in-memory saver.
	Checkpointer graph.Checkpointer[core.State]
	Logger       logging.Logger
}

// Workflow is the compiled support routing graph.
type Workflow struct {
	compiled *graph.CompiledGraph[core.State]
	logger   logging.Logger
}

// NewWorkflow builds and compiles the support routing graph over the given model.
func NewWorkflow(llm model.Model, optFns ...func(o *Options)) (*Workflow, error) {
	opts := Options{
		Classifier:   llm,
		Checkpointer: graph.NewMemorySaver[core.State](),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Classifier == nil {
		opts.Classifier = llm
	}
	logger := logging.OrNoOp(opts.Logger)

	g := graph.NewStateGraph[core.State]()
	g.AddNode(NodeInitialSupport, initialSupportNode(llm, opts.Classifier, logger))
	g.AddNode(NodeCertificationSupport, certificationSupportNode(llm, logger))
	g.AddEdge(graph.Start, NodeInitialSupport)
	g.AddConditionalEdges(NodeInitialSupport, Route, map[string]string{
		EdgeCertification:  NodeCertificationSupport,
		EdgeConversational: graph.End,
	})
	g.AddEdge(NodeCertificationSupport, graph.End)

	compiled, err := g.Compile(func(o *graph.CompileOptions[core.State]) {
		o.Checkpointer = opts.Checkpointer
		o.Reducer = mergeStates
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("compile support graph: %w", err)
	}
	return &Workflow{compiled: compiled, logger: logger}, nil
}

// Invoke runs one user turn through the workflow. threadID namespaces the
// in-memory checkpoint so follow-up turns resume the same conversation.
func (w *Workflow) Invoke(ctx context.Context, threadID, userText string) (core.State, error) {
	state := core.NewState(core.UserMessage(userText))
	return w.compiled.Invoke(ctx, state, func(o *graph.InvokeOptions) {
		o.ThreadID = threadID
	})
}

// Route is the conditional router: CERTIFICATION selects the certification
// edge, every other enumerated label ends the conversation turn.
func Route(_ context.Context, s core.State) (string, error) {
	if s.NextRepresentative == core.RouteCertification {
		return EdgeCertification, nil
	}
	return EdgeConversational, nil
}

// mergeStates resumes a checkpointed thread: the incoming turn's messages are
// appended to the prior history and routing metadata is reset for the new turn.
func mergeStates(prior, incoming core.State) core.State {
	merged := prior.Clone()
	merged.Messages = core.Append(merged.Messages, incoming.Messages...)
	merged.NextRepresentative = ""
	return merged
}

// initialSupportNode produces the frontline reply and the routing decision in
// one pass: one model call for the reply, a second structured call for the
// label.
func initialSupportNode(llm, classifier model.Model, logger logging.Logger) graph.NodeFunc[core.State] {
	return func(ctx context.Context, s core.State) (core.State, error) {
		reply, err := llm.Generate(ctx, model.Request{
			Instructions: initialSupportInstruction,
			Messages:     s.Messages,
		})
		if err != nil {
			return s, fmt.Errorf("initial support reply: %w", err)
		}

		decision, err := classify(ctx, classifier, s.Messages, logger)
		if err != nil {
			return s, err
		}

		logger.Info("support.initial.routed", "label", string(decision.Label))
		return s.WithMessages(core.AssistantMessage(reply.Text)).WithNext(decision.Label), nil
	}
}

// classify runs the structured routing call: routing system prompt, the full
// history, and the classification task appended as the final user turn.
// A label outside the enumeration falls back to RESPOND with a warning.
func classify(ctx context.Context, classifier model.Model, history []core.Message, logger logging.Logger) (core.Decision, error) {
	resp, err := classifier.Generate(ctx, model.Request{
		Instructions:   routingInstruction,
		Messages:       core.Append(history, core.UserMessage(routingTrailingInstruction)),
		ResponseName:   "routing_decision",
		ResponseSchema: routingResponseSchema(),
	})
	if err != nil {
		return core.Decision{}, fmt.Errorf("routing classification: %w", err)
	}

	var payload struct {
		NextRepresentative string `json:"next_representative"`
	}
	if err := json.Unmarshal([]byte(resp.Text), &payload); err != nil {
		return core.Decision{}, fmt.Errorf("parse routing classification %q: %w", resp.Text, err)
	}

	label, err := core.ParseRoutingLabel(payload.NextRepresentative)
	if err != nil {
		logger.Warn("support.routing.unknown_label",
			"label", payload.NextRepresentative, "fallback", string(core.RouteRespond))
		label = core.RouteRespond
	}
	return core.Decision{Label: label}, nil
}

// certificationSupportNode re-answers with the certification prompt. When the
// most recent entry is assistant-authored (the frontline reply), it is
// dropped from the model input so the last turn presented is the user's; the
// state itself keeps the full history.
func certificationSupportNode(llm model.Model, logger logging.Logger) graph.NodeFunc[core.State] {
	return func(ctx context.Context, s core.State) (core.State, error) {
		history := core.TrimTrailingAssistant(s.Messages)

		reply, err := llm.Generate(ctx, model.Request{
			Instructions: certificationSupportInstruction,
			Messages:     history,
		})
		if err != nil {
			return s, fmt.Errorf("certification support reply: %w", err)
		}

		logger.Debug("support.certification.replied")
		return s.WithMessages(core.AssistantMessage(reply.Text)), nil
	}
}
