// Package report runs the canned season reports against the relational
// schema and renders them for the terminal.
package report

import (
	"context"
	"fmt"
	"sort"

	"github.com/rzagreb/cricstats/internal/database"
)

// queries maps report names to their season-parameterized SQL.
var queries = map[string]string{
	"top_batsmen": `
SELECT
    p.name AS batter_name,
    SUM(od.runs_batter) AS total_runs
FROM overs_deliveries od
INNER JOIN people p ON od.batter_id = p.person_id
INNER JOIN matches m ON od.match_id = m.match_id
WHERE m.season = $1
GROUP BY 1
ORDER BY 2 DESC
LIMIT 10`,

	"top_batter_strike_rates": `
SELECT
    p.name AS batter_name,
    SUM(od.runs_batter) AS total_runs,
    COUNT(od.delivery_id) AS balls_faced,
    ROUND((SUM(od.runs_batter)::decimal / COUNT(od.delivery_id)) * 100, 2) AS strike_rate
FROM overs_deliveries od
INNER JOIN people p ON od.batter_id = p.person_id
INNER JOIN matches m ON od.match_id = m.match_id
WHERE m.season = $1
GROUP BY 1
ORDER BY strike_rate DESC
LIMIT 10`,

	"top_wicket_takers": `
SELECT
    p.name AS bowler_name,
    COUNT(*) AS total_wickets
FROM overs_deliveries od
INNER JOIN people p ON od.bowler_id = p.person_id
INNER JOIN matches m ON od.match_id = m.match_id
WHERE
    m.season = $1
    AND od.wickets IS NOT NULL
GROUP BY 1
ORDER BY 2 DESC
LIMIT 10`,
}

// Names lists the available reports, sorted.
func Names() []string {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selector is the query surface the reports need; *database.DB satisfies it.
type Selector interface {
	Select(ctx context.Context, sql string, args ...any) (*database.Result, error)
}

// Season runs the named report for one season.
func Season(ctx context.Context, db Selector, name, season string) (*database.Result, error) {
	sql, ok := queries[name]
	if !ok {
		return nil, fmt.Errorf("invalid report %q; available reports: %v", name, Names())
	}
	res, err := db.Select(ctx, sql, season)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", name, err)
	}
	return res, nil
}
