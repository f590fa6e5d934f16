package ingest

import (
	"github.com/rzagreb/cricstats/internal/database"
)

// insertRequests converts one parsed match into the ordered sequence of
// batch insertions. Reference tables (people, teams) come first so that the
// later batches can resolve their natural keys against them; the order is a
// hard dependency, not a style choice.
func insertRequests(m *Match) []database.InsertRequest {
	return []database.InsertRequest{
		peopleRequest(m),
		teamsRequest(m),
		matchRequest(m),
		matchTeamsRequest(m),
		matchPlayersRequest(m),
		deliveriesRequest(m),
	}
}

// peopleRequest collects everyone named in the match registry. Players that
// the registry does not know get their display name as a provisional id;
// cricsheet occasionally omits ids and the row would otherwise be lost.
func peopleRequest(m *Match) database.InsertRequest {
	var rows []database.Row
	for name, id := range m.Info.Registry.People {
		rows = append(rows, database.Row{"person_id": id, "name": CleanName(name)})
	}
	for _, teamPlayers := range m.Info.Players {
		for _, player := range teamPlayers {
			if _, known := m.Info.Registry.People[player]; !known {
				rows = append(rows, database.Row{"person_id": player, "name": CleanName(player)})
			}
		}
	}
	return database.InsertRequest{
		Table:    "people",
		Rows:     dedupRows(rows, "person_id"),
		UniqueBy: []database.Key{database.Column("person_id")},
	}
}

func teamsRequest(m *Match) database.InsertRequest {
	rows := make([]database.Row, 0, len(m.Info.Teams))
	for _, team := range m.Info.Teams {
		rows = append(rows, database.Row{
			"name":      CleanName(team),
			"team_type": m.Info.TeamType,
		})
	}
	return database.InsertRequest{
		Table:    "teams",
		Rows:     dedupRows(rows, "name"),
		UniqueBy: []database.Key{database.Column("name")},
	}
}

// matchRequest inserts the match header. The three outcome team references
// arrive as names and are resolved to team ids through the teams table; the
// name columns themselves are matching-only and never written.
func matchRequest(m *Match) database.InsertRequest {
	outcome := m.Info.Outcome
	row := database.Row{
		"name":                       m.Name(),
		"match_number":               m.Number(),
		"match_type":                 m.Info.MatchType,
		"season":                     string(m.Info.Season),
		"gender":                     m.Info.Gender,
		"outcome_by":                 emptyToNil(outcome.By),
		"outcome_bowl_out_team_id":   nil,
		"outcome_eliminator_team_id": nil,
		"outcome_method":             nilIfEmpty(outcome.Method),
		"outcome_result":             nilIfEmpty(outcome.Result),
		"outcome_winner_team_id":     nil,

		"outcome_bowl_out_team_name":   nilIfEmpty(CleanName(outcome.BowlOut)),
		"outcome_eliminator_team_name": nilIfEmpty(CleanName(outcome.Eliminator)),
		"outcome_winner_team_name":     nilIfEmpty(CleanName(outcome.Winner)),
	}

	teamRef := func(nameColumn string) database.NormRef {
		return database.NormRef{
			RefColumn: "team_id",
			RefTable:  "teams",
			BatchKey:  database.Column(nameColumn),
			RefKey:    database.Column("name"),
		}
	}

	return database.InsertRequest{
		Table: "matches",
		Rows:  []database.Row{row},
		Columns: []string{
			"name", "match_number", "match_type", "season", "gender",
			"outcome_by", "outcome_bowl_out_team_id", "outcome_eliminator_team_id",
			"outcome_method", "outcome_result", "outcome_winner_team_id",
		},
		UniqueBy: []database.Key{database.Columns("name", "match_number")},
		NormRefs: map[string]database.NormRef{
			"outcome_bowl_out_team_id":   teamRef("outcome_bowl_out_team_name"),
			"outcome_eliminator_team_id": teamRef("outcome_eliminator_team_name"),
			"outcome_winner_team_id":     teamRef("outcome_winner_team_name"),
		},
		ColumnTypes: map[string]string{
			"outcome_by": "JSONB",
		},
	}
}

func matchTeamsRequest(m *Match) database.InsertRequest {
	rows := make([]database.Row, 0, len(m.Info.Teams))
	for _, team := range m.Info.Teams {
		rows = append(rows, database.Row{
			"match_id": nil,
			"team_id":  nil,

			"name":         m.Name(),
			"match_number": m.Number(),
			"team_name":    CleanName(team),
		})
	}
	return database.InsertRequest{
		Table:    "match_teams",
		Rows:     rows,
		Columns:  []string{"match_id", "team_id"},
		UniqueBy: []database.Key{database.Columns("match_id", "team_id")},
		NormRefs: map[string]database.NormRef{
			"match_id": matchRef("name", "match_number"),
			"team_id":  teamNameRef("team_name"),
		},
	}
}

func matchPlayersRequest(m *Match) database.InsertRequest {
	var rows []database.Row
	for team, players := range m.Info.Players {
		for _, player := range players {
			rows = append(rows, database.Row{
				"match_id":  nil,
				"team_id":   nil,
				"player_id": nil,

				"name":         m.Name(),
				"match_number": m.Number(),
				"team_name":    CleanName(team),
				"player_name":  CleanName(player),
			})
		}
	}
	return database.InsertRequest{
		Table:    "match_players",
		Rows:     rows,
		Columns:  []string{"match_id", "team_id", "player_id"},
		UniqueBy: []database.Key{database.Columns("match_id", "team_id", "player_id")},
		NormRefs: map[string]database.NormRef{
			"match_id":  matchRef("name", "match_number"),
			"team_id":   teamNameRef("team_name"),
			"player_id": personNameRef("player_name"),
		},
	}
}

// deliveriesRequest flattens every ball of every innings into one batch.
// Innings and deliveries are numbered by position (0-based); overs carry
// their own number in the document.
func deliveriesRequest(m *Match) database.InsertRequest {
	var rows []database.Row
	for inningsNo, innings := range m.Innings {
		for _, over := range innings.Overs {
			for deliveryNo, d := range over.Deliveries {
				rows = append(rows, database.Row{
					"match_id":          nil,
					"team_id":           nil,
					"innings_number":    inningsNo,
					"over_number":       over.Over,
					"delivery_number":   deliveryNo,
					"batter_id":         nil,
					"bowler_id":         nil,
					"non_striker_id":    nil,
					"runs_batter":       d.Runs.Batter,
					"runs_extras":       d.Runs.Extras,
					"runs_total":        d.Runs.Total,
					"runs_non_boundary": ptrVal(d.Runs.NonBoundary),
					"extras_byes":       ptrVal(d.Extras.Byes),
					"extras_legbyes":    ptrVal(d.Extras.Legbyes),
					"extras_noballs":    ptrVal(d.Extras.Noballs),
					"extras_penalty":    ptrVal(d.Extras.Penalty),
					"extras_wides":      ptrVal(d.Extras.Wides),
					"replacements":      emptyToNil(d.Replacements),
					"review":            emptyToNil(d.Review),
					"wickets":           emptyToNil(d.Wickets),

					"match_name":       m.Name(),
					"match_number":     m.Number(),
					"team_name":        CleanName(innings.Team),
					"batter_name":      CleanName(d.Batter),
					"bowler_name":      CleanName(d.Bowler),
					"non_striker_name": CleanName(d.NonStriker),
				})
			}
		}
	}
	return database.InsertRequest{
		Table: "overs_deliveries",
		Rows:  rows,
		Columns: []string{
			"match_id", "team_id", "innings_number", "over_number", "delivery_number",
			"batter_id", "bowler_id", "non_striker_id",
			"runs_batter", "runs_extras", "runs_total", "runs_non_boundary",
			"extras_byes", "extras_legbyes", "extras_noballs", "extras_penalty", "extras_wides",
			"replacements", "review", "wickets",
		},
		UniqueBy: []database.Key{
			database.Columns("match_id", "team_id", "innings_number", "over_number", "delivery_number"),
		},
		NormRefs: map[string]database.NormRef{
			"match_id":       matchRef("match_name", "match_number"),
			"team_id":        teamNameRef("team_name"),
			"batter_id":      personNameRef("batter_name"),
			"bowler_id":      personNameRef("bowler_name"),
			"non_striker_id": personNameRef("non_striker_name"),
		},
		ColumnTypes: map[string]string{
			"replacements":      "JSONB",
			"review":            "JSONB",
			"wickets":           "JSONB",
			"runs_non_boundary": "BOOLEAN",
			"extras_byes":       "INTEGER",
			"extras_legbyes":    "INTEGER",
			"extras_noballs":    "INTEGER",
			"extras_penalty":    "INTEGER",
			"extras_wides":      "INTEGER",
		},
	}
}

// matchRef resolves a match id from the batch's (name, number) columns.
func matchRef(nameColumn, numberColumn string) database.NormRef {
	return database.NormRef{
		RefColumn: "match_id",
		RefTable:  "matches",
		BatchKey:  database.Columns(nameColumn, numberColumn),
		RefKey:    database.Columns("name", "match_number"),
	}
}

func teamNameRef(nameColumn string) database.NormRef {
	return database.NormRef{
		RefColumn: "team_id",
		RefTable:  "teams",
		BatchKey:  database.Column(nameColumn),
		RefKey:    database.Column("name"),
	}
}

func personNameRef(nameColumn string) database.NormRef {
	return database.NormRef{
		RefColumn: "person_id",
		RefTable:  "people",
		BatchKey:  database.Column(nameColumn),
		RefKey:    database.Column("name"),
	}
}

// ptrVal dereferences an optional scalar into a bindable value.
func ptrVal[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// nilIfEmpty maps "" to SQL NULL.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// emptyToNil maps absent or empty payloads to SQL NULL so that storage only
// keeps meaningful JSONB documents.
func emptyToNil(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(t) == 0 {
			return nil
		}
	case []any:
		if len(t) == 0 {
			return nil
		}
	}
	return v
}
