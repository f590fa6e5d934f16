package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx stubs the pgx.Tx methods the executor touches. The embedded
// interface panics on anything else, which is exactly what we want from a
// test double.
type fakeTx struct {
	pgx.Tx

	execTag pgconn.CommandTag
	execErr error

	gotSQL  string
	gotArgs []any

	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.gotSQL = sql
	f.gotArgs = args
	return f.execTag, f.execErr
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeQuerier struct {
	tx       *fakeTx
	beginErr error
	begun    int
}

func (f *fakeQuerier) Begin(ctx context.Context) (pgx.Tx, error) {
	f.begun++
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestInsertRows_CommitsAndReportsCount(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{execTag: pgconn.NewCommandTag("INSERT 0 2")}
	q := &fakeQuerier{tx: tx}
	db := New(q)

	n, err := db.InsertRows(context.Background(), InsertRequest{
		Table: "teams",
		Rows: []Row{
			{"name": "India"},
			{"name": "Kenya"},
		},
		UniqueBy: []Key{Column("name")},
	})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}
	if !tx.committed {
		t.Error("transaction was not committed")
	}
	if tx.rolledBack {
		t.Error("transaction rolled back on the happy path")
	}
	if len(tx.gotArgs) != 2 {
		t.Errorf("statement received %d args, want 2", len(tx.gotArgs))
	}
}

func TestInsertRows_EmptyBatchNeverOpensTx(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{tx: &fakeTx{}}
	db := New(q)

	n, err := db.InsertRows(context.Background(), InsertRequest{Table: "teams"})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
	if q.begun != 0 {
		t.Errorf("Begin called %d times for an empty batch", q.begun)
	}
}

func TestInsertRows_RollsBackOnExecError(t *testing.T) {
	t.Parallel()

	boom := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	tx := &fakeTx{execErr: boom}
	db := New(&fakeQuerier{tx: tx})

	_, err := db.InsertRows(context.Background(), InsertRequest{
		Table: "teams",
		Rows:  []Row{{"name": "India"}},
	})

	var stErr *StorageError
	if !errors.As(err, &stErr) {
		t.Fatalf("err = %v, want *StorageError", err)
	}
	if !tx.rolledBack {
		t.Error("transaction was not rolled back")
	}
	if tx.committed {
		t.Error("transaction committed despite failure")
	}

	// The original engine diagnostic must remain reachable.
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Errorf("engine diagnostic lost: %v", err)
	}

	// Statement and params ride along for diagnostics.
	if stErr.SQL == "" || len(stErr.Args) != 1 {
		t.Errorf("StorageError missing statement context: %+v", stErr)
	}
}

func TestInsertRows_ValidationFailsBeforeTx(t *testing.T) {
	t.Parallel()

	q := &fakeQuerier{tx: &fakeTx{}}
	db := New(q)

	_, err := db.InsertRows(context.Background(), InsertRequest{
		Table: "t",
		Rows: []Row{
			{"x": 1, "y": 2},
			{"x": 1},
		},
	})

	var smErr *SchemaMismatchError
	if !errors.As(err, &smErr) {
		t.Fatalf("err = %v, want *SchemaMismatchError", err)
	}
	if q.begun != 0 {
		t.Error("a transaction was opened for an invalid batch")
	}
}

func TestInsertRows_CommitErrorIsStorageError(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{
		execTag:   pgconn.NewCommandTag("INSERT 0 1"),
		commitErr: errors.New("connection reset"),
	}
	db := New(&fakeQuerier{tx: tx})

	_, err := db.InsertRows(context.Background(), InsertRequest{
		Table: "t",
		Rows:  []Row{{"x": 1}},
	})

	var stErr *StorageError
	if !errors.As(err, &stErr) {
		t.Fatalf("err = %v, want *StorageError", err)
	}
}
