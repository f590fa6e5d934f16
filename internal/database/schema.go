package database

import (
	"context"
	"fmt"
)

// schemaSQL bootstraps the cricstats tables. It is idempotent; InitSchema
// may be invoked on every start.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS people (
    person_id TEXT PRIMARY KEY,
    name      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_people_name ON people (name);

CREATE TABLE IF NOT EXISTS teams (
    team_id   SERIAL PRIMARY KEY,
    name      TEXT NOT NULL,
    team_type TEXT
);
CREATE INDEX IF NOT EXISTS idx_teams_name ON teams (name);

CREATE TABLE IF NOT EXISTS matches (
    match_id                   SERIAL PRIMARY KEY,
    name                       TEXT NOT NULL,
    match_number               INTEGER NOT NULL DEFAULT -1,
    match_type                 TEXT,
    season                     TEXT,
    gender                     TEXT,
    outcome_by                 JSONB,
    outcome_bowl_out_team_id   INTEGER REFERENCES teams (team_id),
    outcome_eliminator_team_id INTEGER REFERENCES teams (team_id),
    outcome_method             TEXT,
    outcome_result             TEXT,
    outcome_winner_team_id     INTEGER REFERENCES teams (team_id)
);
CREATE INDEX IF NOT EXISTS idx_matches_name_number ON matches (name, match_number);
CREATE INDEX IF NOT EXISTS idx_matches_season ON matches (season);

CREATE TABLE IF NOT EXISTS match_teams (
    match_id INTEGER NOT NULL REFERENCES matches (match_id),
    team_id  INTEGER NOT NULL REFERENCES teams (team_id)
);
CREATE INDEX IF NOT EXISTS idx_match_teams ON match_teams (match_id, team_id);

CREATE TABLE IF NOT EXISTS match_players (
    match_id  INTEGER NOT NULL REFERENCES matches (match_id),
    team_id   INTEGER NOT NULL REFERENCES teams (team_id),
    player_id TEXT NOT NULL REFERENCES people (person_id)
);
CREATE INDEX IF NOT EXISTS idx_match_players ON match_players (match_id, team_id, player_id);

CREATE TABLE IF NOT EXISTS overs_deliveries (
    delivery_id       BIGSERIAL PRIMARY KEY,
    match_id          INTEGER NOT NULL REFERENCES matches (match_id),
    team_id           INTEGER NOT NULL REFERENCES teams (team_id),
    innings_number    INTEGER NOT NULL,
    over_number       INTEGER NOT NULL,
    delivery_number   INTEGER NOT NULL,
    batter_id         TEXT REFERENCES people (person_id),
    bowler_id         TEXT REFERENCES people (person_id),
    non_striker_id    TEXT REFERENCES people (person_id),
    runs_batter       INTEGER NOT NULL,
    runs_extras       INTEGER NOT NULL,
    runs_total        INTEGER NOT NULL,
    runs_non_boundary BOOLEAN,
    extras_byes       INTEGER,
    extras_legbyes    INTEGER,
    extras_noballs    INTEGER,
    extras_penalty    INTEGER,
    extras_wides      INTEGER,
    replacements      JSONB,
    review            JSONB,
    wickets           JSONB
);
CREATE INDEX IF NOT EXISTS idx_overs_deliveries_key
    ON overs_deliveries (match_id, team_id, innings_number, over_number, delivery_number);
`

// InitSchema creates the cricstats schema objects if they do not exist.
func (db *DB) InitSchema(ctx context.Context) error {
	if err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
