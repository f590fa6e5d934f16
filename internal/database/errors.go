package database

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaMismatchError reports a row whose column set disagrees with the
// batch's reference column set (taken from row 0). It is raised before any
// statement is built.
type SchemaMismatchError struct {
	RowIndex int
	Missing  []string // columns in the symmetric difference, sorted
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("row %d: column set differs from row 0: %s",
		e.RowIndex, strings.Join(e.Missing, ", "))
}

// InvalidValueError reports a row that still carries the Unset sentinel.
// It is raised before any statement is built.
type InvalidValueError struct {
	RowIndex int
	Column   string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("row %d: column %q has an unset value", e.RowIndex, e.Column)
}

// JoinKeyError reports a malformed NormRef join key or uniqueness
// constraint, discovered at query-build time.
type JoinKeyError struct {
	Column string // output column the NormRef populates, or "" for a constraint
	Reason string
}

func (e *JoinKeyError) Error() string {
	if e.Column == "" {
		return "uniqueness constraint: " + e.Reason
	}
	return fmt.Sprintf("norm ref for %q: %s", e.Column, e.Reason)
}

// StorageError wraps a failure surfaced by the database engine while
// executing a batch. The transaction has been rolled back; the statement and
// its parameters are attached for diagnostics.
type StorageError struct {
	Table string
	SQL   string
	Args  []any
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("insert into %q: %v", e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// sortedKeys returns the keys of m in lexical order. The engine iterates
// maps through this helper so that generated SQL is deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
