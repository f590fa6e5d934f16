package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the slice of pgxpool.Pool the engine needs. Tests substitute a
// fake; production code passes the pool from Open.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DB wraps a caller-owned connection pool. It holds no other state; one
// insertion runs per call, inside its own transaction.
type DB struct {
	q Querier
}

// Open connects a pgx pool to the given DSN and returns the DB plus a close
// function for cleanup.
func Open(ctx context.Context, dsn string) (*DB, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &DB{q: pool}, pool.Close, nil
}

// New wraps an existing Querier. Useful for tests and for callers that
// manage the pool themselves.
func New(q Querier) *DB {
	return &DB{q: q}
}

// InsertRows validates the batch, builds the normalizing insert statement,
// and executes it in a single transaction. It returns the number of rows
// actually inserted, which may be less than len(req.Rows) when uniqueness
// constraints veto rows that already exist.
//
// An empty batch is a no-op: zero rows, nil error, no transaction. Any
// failure surfaced by the engine rolls the transaction back and is returned
// as a *StorageError carrying the statement and parameters; the target table
// is left unchanged.
//
// The existence check and the insert run in one statement but are not
// serializable against concurrent writers: two batches racing on the same
// natural key can both pass the check. Callers needing exactly-once
// semantics under concurrency must also declare a storage-level UNIQUE
// constraint and treat the resulting conflict as expected.
func (db *DB) InsertRows(ctx context.Context, req InsertRequest) (int64, error) {
	if len(req.Rows) == 0 {
		log.Printf("insert into %q: empty batch, nothing to do", req.Table)
		return 0, nil
	}

	if err := validateBatch(req.Rows); err != nil {
		return 0, err
	}

	q, err := buildInsertQuery(req)
	if err != nil {
		return 0, err
	}

	tx, err := db.q.Begin(ctx)
	if err != nil {
		return 0, &StorageError{Table: req.Table, SQL: q.SQL, Args: q.Args, Err: fmt.Errorf("begin: %w", err)}
	}

	tag, err := tx.Exec(ctx, q.SQL, q.Args...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, &StorageError{Table: req.Table, SQL: q.SQL, Args: q.Args, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return 0, &StorageError{Table: req.Table, SQL: q.SQL, Args: q.Args, Err: fmt.Errorf("commit: %w", err)}
	}

	inserted := tag.RowsAffected()
	log.Printf("insert into %q: batch=%d inserted=%d", req.Table, len(req.Rows), inserted)
	return inserted, nil
}

// Result holds an ordered query result. Columns preserves the statement's
// projection order, which map-based rows cannot.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Maps converts the result to one map per row.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			m[col] = row[j]
		}
		out[i] = m
	}
	return out
}

// Select runs a query and collects all rows.
func (db *DB) Select(ctx context.Context, sql string, args ...any) (*Result, error) {
	rows, err := db.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	res := &Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		res.Columns[i] = f.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return res, nil
}

// Exec runs a statement without collecting rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := db.q.Exec(ctx, sql, args...)
	return err
}
