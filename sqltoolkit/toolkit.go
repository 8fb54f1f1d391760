package sqltoolkit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/certpilot/certpilot/logging"
	"github.com/certpilot/certpilot/tool"
)

const (
	listTablesQuery = `SELECT table_name FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

	describeTableQuery = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = $1
ORDER BY ordinal_position`
)

// Options configure toolkit construction.
type Options struct {
	Logger logging.Logger
	// MaxRows caps the number of rows run_query returns to the model.
	MaxRows int
}

// Toolkit exposes SQL query access derived from a live schema as a fixed set
// of tools: list_tables, describe_table and run_query. The tool set is built
// once at construction and is immutable afterwards.
type Toolkit struct {
	db     Querier
	logger logging.Logger
	tables []string
	tools  []tool.Tool
}

// New introspects the reachable schema through db and builds the tool set.
// It fails when the schema cannot be read, so an unreachable database is
// caught at startup rather than at first tool call.
func New(ctx context.Context, db Querier, optFns ...func(o *Options)) (*Toolkit, error) {
	opts := Options{Logger: logging.NoOpLogger{}, MaxRows: 50}
	for _, fn := range optFns {
		fn(&opts)
	}

	tk := &Toolkit{db: db, logger: logging.OrNoOp(opts.Logger)}

	tables, err := tk.tableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}
	tk.tables = tables

	tk.tools = []tool.Tool{
		tk.listTablesTool(),
		tk.describeTableTool(),
		tk.runQueryTool(opts.MaxRows),
	}
	return tk, nil
}

// Tools returns the derived tool set.
func (t *Toolkit) Tools() []tool.Tool {
	out := make([]tool.Tool, len(t.tools))
	copy(out, t.tools)
	return out
}

// Tables returns the table names discovered at construction.
func (t *Toolkit) Tables() []string {
	out := make([]string, len(t.tables))
	copy(out, t.tables)
	return out
}

// SchemaDescription renders a textual summary of every table and its columns,
// suitable for inclusion in a system prompt.
func (t *Toolkit) SchemaDescription(ctx context.Context) (string, error) {
	var b strings.Builder
	for _, table := range t.tables {
		res, err := t.db.Query(ctx, describeTableQuery, table)
		if err != nil {
			return "", fmt.Errorf("describe table %s: %w", table, err)
		}
		fmt.Fprintf(&b, "TABLE %s (\n", table)
		for _, row := range res.Rows {
			fmt.Fprintf(&b, "  %v %v,\n", row["column_name"], row["data_type"])
		}
		b.WriteString(")\n")
	}
	return b.String(), nil
}

func (t *Toolkit) tableNames(ctx context.Context) ([]string, error) {
	res, err := t.db.Query(ctx, listTablesQuery)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row["table_name"].(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (t *Toolkit) listTablesTool() tool.Tool {
	return tool.NewFunctionTool(
		"list_tables",
		"List the tables available in the database.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ map[string]any) (any, error) {
			names, err := t.tableNames(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"tables": names}, nil
		},
	)
}

func (t *Toolkit) describeTableTool() tool.Tool {
	description := "Describe the columns of a table, including types and nullability."
	if len(t.tables) > 0 {
		description += " Available tables: " + strings.Join(t.tables, ", ") + "."
	}
	return tool.NewFunctionTool(
		"describe_table",
		description,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"table": map[string]any{
					"type":        "string",
					"description": "Name of the table to describe",
				},
			},
			"required": []string{"table"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			table := args["table"].(string)
			res, err := t.db.Query(ctx, describeTableQuery, table)
			if err != nil {
				return nil, err
			}
			if res.Count == 0 {
				return nil, tool.NewToolError("describe_table", "UNKNOWN_TABLE",
					fmt.Sprintf("table %q not found", table))
			}
			return res, nil
		},
	)
}

func (t *Toolkit) runQueryTool(maxRows int) tool.Tool {
	return tool.NewFunctionTool(
		"run_query",
		"Execute a read-only SQL SELECT query against the database. Returns results as JSON with columns, column types and rows.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sql": map[string]any{
					"type":        "string",
					"description": "The SQL SELECT query to execute",
				},
			},
			"required": []string{"sql"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			sql := args["sql"].(string)
			if !isReadOnly(sql) {
				return nil, tool.NewToolError("run_query", "READ_ONLY",
					"only read-only SELECT statements are allowed")
			}

			t.logger.Info("executing query", "sql", sql)

			res, err := t.db.Query(ctx, sql)
			if err != nil {
				// Query failures go back to the model as text so it can
				// correct the statement and retry.
				return map[string]any{"error": err.Error()}, nil
			}
			if maxRows > 0 && len(res.Rows) > maxRows {
				res.Rows = res.Rows[:maxRows]
				res.Count = maxRows
			}
			return res, nil
		},
	)
}

// mutatingKeywords are statement keywords that can change data or schema.
// Postgres allows several of these inside a WITH chain (data-modifying CTEs),
// so a head-only check is not enough.
var mutatingKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "TRUNCATE": {},
	"DROP": {}, "ALTER": {}, "CREATE": {}, "GRANT": {}, "REVOKE": {},
	"COPY": {}, "CALL": {}, "VACUUM": {}, "LOCK": {},
}

// isReadOnly accepts plain SELECT statements and WITH ... SELECT chains. The
// statement is tokenized with string literals, quoted identifiers and comments
// stripped, and rejected when any mutating keyword appears anywhere in it, so
// data-modifying CTEs and stacked statements fail the guard too.
func isReadOnly(sql string) bool {
	words := sqlWords(sql)
	if len(words) == 0 || (words[0] != "SELECT" && words[0] != "WITH") {
		return false
	}
	for _, w := range words {
		if _, mutating := mutatingKeywords[w]; mutating {
			return false
		}
	}
	return true
}

// sqlWords returns the upper-cased word tokens of sql, skipping single-quoted
// strings, double-quoted identifiers, line comments and block comments.
func sqlWords(sql string) []string {
	var words []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToUpper(string(word)))
			word = word[:0]
		}
	}

	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'':
			flush()
			for i++; i < len(runes); i++ {
				if runes[i] != '\'' {
					continue
				}
				if i+1 < len(runes) && runes[i+1] == '\'' { // escaped quote
					i++
					continue
				}
				break
			}
		case c == '"':
			flush()
			for i++; i < len(runes) && runes[i] != '"'; i++ {
			}
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			flush()
			for i += 2; i < len(runes) && runes[i] != '\n'; i++ {
			}
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			for i += 2; i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/'); i++ {
			}
			i++
		case unicode.IsLetter(c) || c == '_' || (len(word) > 0 && unicode.IsDigit(c)):
			word = append(word, c)
		default:
			flush()
		}
	}
	flush()
	return words
}
