package ingest

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/rzagreb/cricstats/internal/database"
)

// dedupRows collapses rows that repeat the same business key within one
// batch, keeping the first occurrence. The database-side existence check
// only vetoes rows that already exist in the target table; it cannot stop
// one batch from inserting the same natural key twice, so intra-batch
// duplicates are removed here before the engine sees them.
//
// The key is hashed with xxh3 over the concatenated key fields (nil encodes
// as \x00, fields separated by \x1f).
func dedupRows(rows []database.Row, keys ...string) []database.Row {
	if len(rows) < 2 || len(keys) == 0 {
		return rows
	}

	seen := make(map[uint64]struct{}, len(rows))
	out := rows[:0]
	for _, row := range rows {
		h := keyHash(row, keys)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, row)
	}
	return out
}

func keyHash(row database.Row, keys []string) uint64 {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch v := row[k].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(v)
		default:
			fmt.Fprint(&b, v)
		}
	}
	return xxh3.HashString(b.String())
}
