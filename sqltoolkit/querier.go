// Package sqltoolkit derives a set of SQL access tools from a live relational
// schema: listing tables, describing columns and running read-only queries.
// Database access goes through the Querier interface so the toolkit can be
// backed by pgx in production and by a stub in tests.
package sqltoolkit

import (
	"context"
	"encoding/json"
	"fmt"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Result is the normalized outcome of a SQL query.
type Result struct {
	Columns     []string `json:"columns"`
	ColumnTypes []string `json:"column_types,omitempty"`
	Rows        []Row    `json:"rows"`
	Count       int      `json:"count"`
}

// ToJSON renders the result as a compact JSON string for tool responses.
func (r *Result) ToJSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal query result: %w", err)
	}
	return string(data), nil
}

// Querier executes SQL against the underlying database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (*Result, error)
}
