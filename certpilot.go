// Package certpilot provides a high-level façade over the building blocks of
// the KC certification support system: the SQL-backed certification
// assistant (database toolkit + tool-calling executor) and the two-node
// support routing workflow. Most applications interact with this package by:
//  1. Connecting to Postgres and wrapping the pool in a sqltoolkit.Querier
//  2. Creating a SQLAssistant and/or a support workflow via the constructors
//  3. Invoking them with user questions
//
// All defaults are safe for local development: in-memory checkpoints and a
// no-op logger. Production deployments supply their own logger and, when
// durable conversations matter, a persistent checkpointer.
package certpilot

import (
	"context"
	"fmt"

	"github.com/certpilot/certpilot/agent"
	"github.com/certpilot/certpilot/model"
	"github.com/certpilot/certpilot/sqltoolkit"
	"github.com/certpilot/certpilot/support"
)

// SQLAssistant bundles the certification SQL toolkit with the tool-calling
// executor that answers questions over it.
type SQLAssistant struct {
	Executor *agent.Executor
	Toolkit  *sqltoolkit.Toolkit
}

// NewSQLAssistant derives the SQL toolkit from the reachable schema, builds
// the certification system prompt from the live schema description, and binds
// both to a tool-calling executor.
func NewSQLAssistant(ctx context.Context, llm model.Model, db sqltoolkit.Querier, optFns ...func(o *agent.Options)) (*SQLAssistant, error) {
	toolkit, err := sqltoolkit.New(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("build sql toolkit: %w", err)
	}

	schemaDesc, err := toolkit.SchemaDescription(ctx)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}

	executor := agent.New(llm, support.SQLAssistantInstruction(schemaDesc), toolkit.Tools(), optFns...)
	return &SQLAssistant{Executor: executor, Toolkit: toolkit}, nil
}

// Ask answers a single certification question through the executor.
func (a *SQLAssistant) Ask(ctx context.Context, question string) (string, error) {
	result, err := a.Executor.Run(ctx, question)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// NewSupportWorkflow builds the compiled support routing workflow with
// default in-memory checkpointing.
func NewSupportWorkflow(llm model.Model, optFns ...func(o *support.Options)) (*support.Workflow, error) {
	return support.NewWorkflow(llm, optFns...)
}
