// Package postgres provides the database bootstrap for the certification SQL
// assistant: a result-returning connect function over pgxpool and a
// sqltoolkit.Querier adapter. Exit-on-failure policy is left to the caller so
// the bootstrap stays testable without spawning a process.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/certpilot/certpilot/sqltoolkit"
)

// Options tune the connection pool.
type Options struct {
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

// Connect parses connString, builds a pgx connection pool and verifies the
// database is reachable with a ping. On any failure it returns an error; it
// never terminates the process.
func Connect(ctx context.Context, connString string, optFns ...func(o *Options)) (*pgxpool.Pool, error) {
	opts := Options{MaxConns: 10, MinConns: 2, ConnectTimeout: 5 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Querier adapts a pgx pool to the sqltoolkit.Querier interface.
type Querier struct {
	pool *pgxpool.Pool
}

// NewQuerier wraps an existing pool.
func NewQuerier(pool *pgxpool.Pool) *Querier {
	return &Querier{pool: pool}
}

// Query executes sql inside a read-only transaction and normalizes the rows
// into a sqltoolkit.Result. The access mode makes the server itself reject any
// write the statement smuggles in, e.g. through a data-modifying CTE.
func (q *Querier) Query(ctx context.Context, sql string, args ...any) (*sqltoolkit.Result, error) {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &sqltoolkit.Result{
		Columns:     make([]string, len(fields)),
		ColumnTypes: make([]string, len(fields)),
	}
	for i, f := range fields {
		result.Columns[i] = f.Name
		result.ColumnTypes[i] = fmt.Sprintf("oid:%d", f.DataTypeOID)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(sqltoolkit.Row, len(values))
		for i, v := range values {
			row[result.Columns[i]] = v
		}
		result.Rows = append(result.Rows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit read-only tx: %w", err)
	}
	result.Count = len(result.Rows)
	return result, nil
}
