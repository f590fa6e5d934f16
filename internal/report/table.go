package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rzagreb/cricstats/internal/database"
)

// WriteTable renders a query result as an ASCII table: a header row, a
// dashed separator, then one line per row, columns padded to their widest
// cell. An empty result prints a placeholder instead.
func WriteTable(w io.Writer, res *database.Result) error {
	if res == nil || len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No data to display.")
		return err
	}

	widths := make([]int, len(res.Columns))
	for i, col := range res.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		cells[i] = make([]string, len(res.Columns))
		for j := range res.Columns {
			s := cellString(row, j)
			cells[i][j] = s
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}

	header := make([]string, len(res.Columns))
	sep := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		header[i] = pad(col, widths[i])
		sep[i] = strings.Repeat("-", widths[i])
	}
	if _, err := fmt.Fprintln(w, strings.Join(header, " | ")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Join(sep, "-+-")); err != nil {
		return err
	}

	for _, row := range cells {
		line := make([]string, len(row))
		for j, s := range row {
			line[j] = pad(s, widths[j])
		}
		if _, err := fmt.Fprintln(w, strings.Join(line, " | ")); err != nil {
			return err
		}
	}
	return nil
}

func cellString(row []any, j int) string {
	if j >= len(row) || row[j] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[j])
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
