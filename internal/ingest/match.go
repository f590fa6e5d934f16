// Package ingest downloads cricsheet match archives, extracts them, parses
// the per-match JSON documents, and feeds denormalized row batches to the
// insertion engine in internal/database.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Match is one cricsheet match document. Only the fields the ingestion
// pipeline consumes are modeled; semi-structured payloads that are persisted
// verbatim (wickets, reviews, replacements, outcome.by) stay untyped.
type Match struct {
	Info    MatchInfo `json:"info"`
	Innings []Innings `json:"innings"`
}

// MatchInfo is the match-level metadata block.
type MatchInfo struct {
	Event     Event               `json:"event"`
	Season    FlexString          `json:"season"`
	MatchType string              `json:"match_type"`
	Gender    string              `json:"gender"`
	Venue     string              `json:"venue"`
	City      string              `json:"city"`
	TeamType  string              `json:"team_type"`
	Teams     []string            `json:"teams"`
	Players   map[string][]string `json:"players"`
	Registry  Registry            `json:"registry"`
	Outcome   Outcome             `json:"outcome"`
}

// Event names the tournament and the match's number within it.
type Event struct {
	Name        string `json:"name"`
	MatchNumber *int   `json:"match_number"`
}

// Registry carries cricsheet's identity registry; People maps a person's
// display name to their stable cricsheet id.
type Registry struct {
	People map[string]string `json:"people"`
}

// Outcome describes how the match ended. By is persisted as-is (JSONB).
type Outcome struct {
	Winner     string         `json:"winner"`
	By         map[string]any `json:"by"`
	Method     string         `json:"method"`
	Result     string         `json:"result"`
	Eliminator string         `json:"eliminator"`
	BowlOut    string         `json:"bowl_out"`
}

// Innings is one team's innings, a sequence of overs.
type Innings struct {
	Team  string `json:"team"`
	Overs []Over `json:"overs"`
}

// Over is a numbered over and its deliveries.
type Over struct {
	Over       int        `json:"over"`
	Deliveries []Delivery `json:"deliveries"`
}

// Delivery is a single ball. Wickets, Review and Replacements are persisted
// as opaque JSONB payloads.
type Delivery struct {
	Batter       string `json:"batter"`
	Bowler       string `json:"bowler"`
	NonStriker   string `json:"non_striker"`
	Runs         Runs   `json:"runs"`
	Extras       Extras `json:"extras"`
	Wickets      any    `json:"wickets"`
	Review       any    `json:"review"`
	Replacements any    `json:"replacements"`
}

// Runs breaks down the runs scored off one delivery.
type Runs struct {
	Batter      int   `json:"batter"`
	Extras      int   `json:"extras"`
	Total       int   `json:"total"`
	NonBoundary *bool `json:"non_boundary"`
}

// Extras breaks down extras per kind; absent kinds stay nil.
type Extras struct {
	Byes    *int `json:"byes"`
	Legbyes *int `json:"legbyes"`
	Noballs *int `json:"noballs"`
	Penalty *int `json:"penalty"`
	Wides   *int `json:"wides"`
}

// FlexString decodes a JSON string or number as a string. Cricsheet seasons
// appear both ways ("2019/20" and 2019).
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// ParseMatchFile reads and decodes one match document.
func ParseMatchFile(path string) (*Match, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read match file: %w", err)
	}
	var m Match
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("decode match file %s: %w", path, err)
	}
	return &m, nil
}

// Name returns the match's natural key: the event name when present,
// otherwise a synthetic key from the match metadata.
func (m *Match) Name() string {
	if m.Info.Event.Name != "" {
		return m.Info.Event.Name
	}
	return strings.Join([]string{
		string(m.Info.Season), m.Info.MatchType, m.Info.Gender, m.Info.Venue, m.Info.City, "",
	}, "|")
}

// Number returns the event match number, or -1 when the event has none.
// Together with Name it uniquely identifies a match.
func (m *Match) Number() int {
	if m.Info.Event.MatchNumber != nil {
		return *m.Info.Event.MatchNumber
	}
	return -1
}
