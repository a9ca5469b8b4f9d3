// Package sqldb holds the data access shared by the SQLite and PostgreSQL
// stores. Queries are written with ? placeholders and rebound per dialect.
package sqldb

import (
	"database/sql"
	"strconv"
	"strings"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Core implements every data method of storage.Provider on top of *sql.DB.
// DB is nil until the owning store opens it.
type Core struct {
	DB      *sql.DB
	Dialect Dialect
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (c *Core) rebind(query string) string {
	if c.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
