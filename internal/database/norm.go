// Package database implements the normalizing bulk-insertion engine used by
// the ingestion pipeline. It converts batches of denormalized rows (rows that
// still carry human-readable natural keys such as a team name) into a single
// parameterized, multi-stage SQL statement that resolves natural keys to
// surrogate ids, skips rows that already exist under a caller-declared
// uniqueness rule, and inserts the remainder atomically.
//
// The engine owns no process-wide state; it operates on a caller-supplied
// connection pool and builds one statement per call.
package database

// Key identifies one column or an ordered group of columns. It is used both
// for join keys in a NormRef and for uniqueness constraints in an
// InsertRequest. Construct values with Column or Columns so that arity is
// fixed at construction time.
type Key struct {
	cols []string
}

// Column returns a Key over a single column.
func Column(name string) Key {
	return Key{cols: []string{name}}
}

// Columns returns a composite Key over the given columns in order.
func Columns(names ...string) Key {
	cols := make([]string, len(names))
	copy(cols, names)
	return Key{cols: cols}
}

// List returns the column names in declaration order.
func (k Key) List() []string {
	out := make([]string, len(k.cols))
	copy(out, k.cols)
	return out
}

// Len returns the key arity.
func (k Key) Len() int { return len(k.cols) }

// NormRef describes how one output column is resolved to a surrogate id by
// joining the incoming batch against a reference table. It is pure data; the
// query builder turns a set of NormRefs into LEFT JOIN clauses.
//
// A batch row whose natural key has no match in the reference table yields a
// NULL surrogate id rather than an error. Callers that consider an unmatched
// key fatal must check for NULLs downstream.
type NormRef struct {
	// RefColumn is the surrogate-id column pulled from the reference table,
	// e.g. "team_id".
	RefColumn string

	// RefTable is the reference table holding the surrogate id and its
	// natural key, e.g. "teams".
	RefTable string

	// BatchKey names the column(s) in the incoming batch to join on.
	BatchKey Key

	// RefKey names the corresponding column(s) in the reference table.
	// Must have the same arity as BatchKey.
	RefKey Key
}

// Row maps column names to scalar values. Nested maps and slices are
// persisted as their canonical JSON encoding (pair them with a JSONB type
// override in the InsertRequest).
type Row map[string]any

// unsetValue is the type of the Unset sentinel.
type unsetValue struct{}

// Unset marks a row value that was never filled in by the author of the
// batch. It is not data: a batch containing Unset anywhere is rejected
// before any SQL is built.
var Unset unsetValue

// InsertRequest describes one atomic batch insertion.
type InsertRequest struct {
	// Table is the unqualified target table name.
	Table string

	// Schema is the schema qualifier; empty means "public".
	Schema string

	// Rows is the batch. Every row must present the same column set as
	// Rows[0]. An empty batch is a no-op, not an error.
	Rows []Row

	// Columns selects which batch columns are actually written, in order.
	// Empty means all batch columns. Columns present in the batch but not
	// listed here are matching-only helpers (e.g. the natural-key inputs
	// of a NormRef).
	Columns []string

	// UniqueBy lists uniqueness constraints. A row is skipped if a target
	// row matches it on every column of at least one constraint. Empty
	// means no deduplication.
	UniqueBy []Key

	// NormRefs maps an output column to the rule that resolves it, e.g.
	// "team_id" -> join teams on team_name = teams.name.
	NormRefs map[string]NormRef

	// ColumnTypes maps a column to an explicit storage type (e.g. "JSONB",
	// "INTEGER") cast onto the selected value. Needed where the engine
	// cannot infer the type from a bare parameter, such as all-NULL columns
	// and semi-structured payloads.
	ColumnTypes map[string]string
}

// schemaOrDefault returns the schema qualifier to use.
func (r InsertRequest) schemaOrDefault() string {
	if r.Schema == "" {
		return "public"
	}
	return r.Schema
}
