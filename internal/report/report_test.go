package report

import (
	"context"
	"strings"
	"testing"

	"github.com/rzagreb/cricstats/internal/database"
)

type fakeSelector struct {
	sql    string
	args   []any
	result *database.Result
}

func (f *fakeSelector) Select(ctx context.Context, sql string, args ...any) (*database.Result, error) {
	f.sql = sql
	f.args = args
	return f.result, nil
}

func TestSeason(t *testing.T) {
	t.Parallel()

	fake := &fakeSelector{result: &database.Result{
		Columns: []string{"batter_name", "total_runs"},
		Rows:    [][]any{{"V Kohli", int64(1202)}},
	}}

	res, err := Season(context.Background(), fake, "top_batsmen", "2018/19")
	if err != nil {
		t.Fatalf("Season: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("rows = %v", res.Rows)
	}
	if !strings.Contains(fake.sql, "SUM(od.runs_batter)") {
		t.Errorf("unexpected query:\n%s", fake.sql)
	}
	if !strings.Contains(fake.sql, "m.season = $1") {
		t.Errorf("season not parameterized:\n%s", fake.sql)
	}
	if len(fake.args) != 1 || fake.args[0] != "2018/19" {
		t.Errorf("args = %v", fake.args)
	}
}

func TestSeasonRejectsUnknownReport(t *testing.T) {
	t.Parallel()

	_, err := Season(context.Background(), &fakeSelector{}, "top_fielders", "2018/19")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "top_batsmen") {
		t.Errorf("error should list available reports: %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	t.Parallel()

	want := []string{"top_batsmen", "top_batter_strike_rates", "top_wicket_takers"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	err := WriteTable(&sb, &database.Result{
		Columns: []string{"bowler_name", "total_wickets"},
		Rows: [][]any{
			{"TA Boult", int64(21)},
			{"K Rabada", int64(9)},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"bowler_name | total_wickets",
		"------------+--------------",
		"TA Boult    | 21           ",
		"K Rabada    | 9            ",
		"",
	}, "\n")
	if sb.String() != want {
		t.Errorf("table:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestWriteTableEmpty(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	if err := WriteTable(&sb, &database.Result{Columns: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "No data to display.\n" {
		t.Errorf("got %q", sb.String())
	}
}

func TestWriteTableNilValues(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	err := WriteTable(&sb, &database.Result{
		Columns: []string{"name", "runs"},
		Rows:    [][]any{{"X", nil}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "X    | ") {
		t.Errorf("table:\n%s", sb.String())
	}
}
