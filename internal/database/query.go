package database

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// CTE names used by the generated statement. new_rows materializes the raw
// batch; new_rows_norm layers the natural-key joins on top of it.
const (
	cteOrig = "new_rows"
	cteNorm = "new_rows_norm"
)

// typeTokenRe restricts explicit storage types to plain SQL type tokens such
// as "JSONB", "DOUBLE PRECISION", "NUMERIC(10,2)" or "TEXT[]". Anything else
// is rejected so that ColumnTypes can never smuggle SQL into the statement.
var typeTokenRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?: [A-Za-z_][A-Za-z0-9_]*)*(?:\(\d+(?:, ?\d+)?\))?(?:\[\])?$`)

// insertQuery is the assembled statement plus its positional parameters.
type insertQuery struct {
	SQL  string
	Args []any
}

// buildInsertQuery assembles one set-based statement for the request:
//
//	WITH new_rows (cols...) AS (VALUES ($1,...), ...)
//	[, new_rows_norm AS (SELECT ... FROM new_rows LEFT JOIN ref ...)]
//	INSERT INTO "schema"."table" (cols_to_insert...)
//	SELECT col[::TYPE], ... FROM <source> WHERE 1=1
//	[AND NOT EXISTS (SELECT 1 FROM target p WHERE ...)]
//
// Rows must already have passed validateBatch. All values are bound as
// positional parameters, flattened row-major in the batch column order;
// identifiers are always quoted.
func buildInsertQuery(req InsertRequest) (insertQuery, error) {
	columns := batchColumns(req.Rows[0])
	schema := req.schemaOrDefault()

	args, err := flattenArgs(req.Rows, columns)
	if err != nil {
		return insertQuery{}, err
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("WITH %s (%s) AS (VALUES %s)",
		cteOrig,
		strings.Join(quoteAll(columns), ", "),
		valuesPlaceholders(len(req.Rows), len(columns)),
	))

	source := cteOrig
	if len(req.NormRefs) > 0 {
		normCTE, err := buildNormCTE(req.NormRefs, columns, schema)
		if err != nil {
			return insertQuery{}, err
		}
		parts = append(parts, normCTE)
		source = cteNorm
	}

	insertCols := req.Columns
	if len(insertCols) == 0 {
		insertCols = columns
	}

	selectCols := make([]string, len(insertCols))
	for i, col := range insertCols {
		expr := quoteIdent(col)
		if typ, ok := req.ColumnTypes[col]; ok {
			if !typeTokenRe.MatchString(typ) {
				return insertQuery{}, fmt.Errorf("column %q: invalid storage type %q", col, typ)
			}
			expr += "::" + typ
		}
		selectCols[i] = expr
	}

	parts = append(parts, fmt.Sprintf(
		"INSERT INTO %s.%s (%s)\nSELECT %s\nFROM %s\nWHERE 1=1",
		quoteIdent(schema), quoteIdent(req.Table),
		strings.Join(quoteAll(insertCols), ", "),
		strings.Join(selectCols, ", "),
		source,
	))

	if len(req.UniqueBy) > 0 {
		excl, err := buildExclusionClause(schema, req.Table, source, req.UniqueBy)
		if err != nil {
			return insertQuery{}, err
		}
		parts = append(parts, excl)
	}

	return insertQuery{SQL: strings.Join(parts, "\n"), Args: args}, nil
}

// buildNormCTE builds the derived relation that substitutes each NormRef's
// output column with the surrogate id found by LEFT JOINing the raw batch to
// the rule's reference table. Each rule joins a distinct aliased instance of
// its table, so several rules may resolve against the same reference table
// independently. Columns without a rule pass through unchanged and the CTE
// exposes exactly the batch's columns in batch column order.
func buildNormCTE(refs map[string]NormRef, columns []string, schema string) (string, error) {
	exprs := make(map[string]string, len(columns))
	for _, col := range columns {
		exprs[col] = cteOrig + "." + quoteIdent(col)
	}

	var joins []string
	for i, col := range sortedKeys(refs) {
		rule := refs[col]
		alias := fmt.Sprintf("%s_%d", rule.RefTable, i)

		conds, err := joinConditions(rule, alias)
		if err != nil {
			return "", err
		}

		exprs[col] = fmt.Sprintf("%s.%s AS %s",
			quoteIdent(alias), quoteIdent(rule.RefColumn), quoteIdent(col))
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s.%s %s ON %s",
			quoteIdent(schema), quoteIdent(rule.RefTable), quoteIdent(alias),
			strings.Join(conds, " AND ")))
	}

	selected := make([]string, len(columns))
	for i, col := range columns {
		selected[i] = exprs[col]
	}

	return fmt.Sprintf(", %s AS (\nSELECT %s\nFROM %s\n%s\n)",
		cteNorm, strings.Join(selected, ", "), cteOrig, strings.Join(joins, "\n")), nil
}

// joinConditions renders the equality conditions joining the batch CTE to an
// aliased reference table. Composite keys produce one condition per column
// pair, ANDed by the caller.
func joinConditions(rule NormRef, alias string) ([]string, error) {
	batch, ref := rule.BatchKey.List(), rule.RefKey.List()
	if len(batch) == 0 || len(ref) == 0 {
		return nil, &JoinKeyError{Column: rule.RefColumn, Reason: "join key must name at least one column"}
	}
	if len(batch) != len(ref) {
		return nil, &JoinKeyError{
			Column: rule.RefColumn,
			Reason: fmt.Sprintf("join key arity mismatch: batch has %d columns, reference has %d", len(batch), len(ref)),
		}
	}

	conds := make([]string, len(batch))
	for i := range batch {
		conds[i] = fmt.Sprintf("%s.%s = %s.%s",
			cteOrig, quoteIdent(batch[i]), quoteIdent(alias), quoteIdent(ref[i]))
	}
	return conds, nil
}

// buildExclusionClause renders the existence veto: a source row is dropped
// when a target row matches it on every column of at least one uniqueness
// constraint. Constraints are ORed; columns within a constraint are ANDed.
func buildExclusionClause(schema, table, source string, uniqueBy []Key) (string, error) {
	conds := make([]string, 0, len(uniqueBy))
	for _, key := range uniqueBy {
		cols := key.List()
		if len(cols) == 0 {
			return "", &JoinKeyError{Reason: "must name at least one column"}
		}
		eqs := make([]string, len(cols))
		for i, col := range cols {
			eqs[i] = fmt.Sprintf("p.%s = %s.%s", quoteIdent(col), source, quoteIdent(col))
		}
		conds = append(conds, "("+strings.Join(eqs, " AND ")+")")
	}

	return fmt.Sprintf("AND NOT EXISTS (\nSELECT 1 FROM %s.%s p\nWHERE %s\n)",
		quoteIdent(schema), quoteIdent(table), strings.Join(conds, " OR ")), nil
}

// batchColumns returns the batch's canonical column order. Go maps carry no
// insertion order, so the engine fixes lexical order; the projection list and
// the parameter flattening both follow it.
func batchColumns(row Row) []string {
	return sortedKeys(row)
}

// valuesPlaceholders renders "(", $1..$m, "), (", $m+1.., ")" for n rows of
// m columns.
func valuesPlaceholders(n, m int) string {
	var b strings.Builder
	p := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < m; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// flattenArgs flattens the batch row-major in the given column order,
// serializing nested values to JSON text.
func flattenArgs(rows []Row, columns []string) ([]any, error) {
	args := make([]any, 0, len(rows)*len(columns))
	for idx, row := range rows {
		for _, col := range columns {
			v, err := bindValue(row[col])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", idx, col, err)
			}
			args = append(args, v)
		}
	}
	return args, nil
}

// bindValue prepares one scalar for parameter binding. Maps and slices are
// encoded as JSON text so that the statement can cast them to a structured
// type; everything else passes through for the driver to encode.
func bindValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.(type) {
	case []byte, string:
		return v, nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode json payload: %w", err)
		}
		return string(buf), nil
	}
	return v, nil
}

// quoteIdent safely quotes a single identifier for Postgres.
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteAll maps a list of identifiers to their quoted forms.
func quoteAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = quoteIdent(id)
	}
	return out
}
