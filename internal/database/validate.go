package database

// validateBatch checks that every row presents the same column set as row 0
// and that no row carries the Unset sentinel. Both checks run before any SQL
// is built; a failure is batch-fatal.
func validateBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ref := make(map[string]struct{}, len(rows[0]))
	for col := range rows[0] {
		ref[col] = struct{}{}
	}

	for idx, row := range rows {
		if idx > 0 {
			if diff := columnDiff(ref, row); len(diff) > 0 {
				return &SchemaMismatchError{RowIndex: idx, Missing: diff}
			}
		}
		for _, col := range sortedKeys(row) {
			if _, ok := row[col].(unsetValue); ok {
				return &InvalidValueError{RowIndex: idx, Column: col}
			}
		}
	}
	return nil
}

// columnDiff returns the symmetric difference between the reference column
// set and the row's column set, sorted.
func columnDiff(ref map[string]struct{}, row Row) []string {
	diff := map[string]struct{}{}
	for col := range ref {
		if _, ok := row[col]; !ok {
			diff[col] = struct{}{}
		}
	}
	for col := range row {
		if _, ok := ref[col]; !ok {
			diff[col] = struct{}{}
		}
	}
	if len(diff) == 0 {
		return nil
	}
	return sortedKeys(diff)
}
