package sqldb

import "testing"

func TestRebind(t *testing.T) {
	query := "SELECT * FROM completions WHERE habit_id = ? AND day = ?"

	lite := &Core{Dialect: SQLite}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %q", got)
	}

	pg := &Core{Dialect: Postgres}
	want := "SELECT * FROM completions WHERE habit_id = $1 AND day = $2"
	if got := pg.rebind(query); got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
}
