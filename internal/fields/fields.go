// Package fields provides capability-checked access to records whose shape
// depends on the schema revision they were written under. Callers ask whether
// a field exists before relying on it; absent fields read as defaults.
package fields

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Accessor is implemented by any storage adapter record.
type Accessor interface {
	HasField(name string) bool
	Get(name string) (any, bool)
}

// Map is a column-name keyed record.
type Map map[string]any

func (m Map) HasField(name string) bool {
	_, ok := m[name]
	return ok
}

func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// FromRows scans every remaining row into a Map keyed by column name.
// Column names are lower-cased so SQLite and PostgreSQL rows look alike.
func FromRows(rows *sql.Rows) ([]Accessor, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Accessor
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		m := make(Map, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[strings.ToLower(col)] = v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// String returns the named field as a string, or def when absent.
func String(a Accessor, name, def string) string {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return def
	}
}

// Bool returns the named field as a bool, or def when absent or unparseable.
// Integer columns (SQLite) and "true"/"1" strings are accepted.
func Bool(a Accessor, name string, def bool) bool {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Int returns the named field as an int, or def when absent or unparseable.
func Int(a Accessor, name string, def int) int {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// Strings returns the named field as a string list. A JSON array, a []string
// or a single non-empty string are all accepted; anything else yields nil.
func Strings(a Accessor, name string) []string {
	v, ok := a.Get(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []string:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			var list []string
			if err := json.Unmarshal([]byte(s), &list); err == nil {
				return list
			}
			return nil
		}
		return []string{s}
	default:
		return nil
	}
}

// Time returns the named field as a time. RFC3339 strings and native times
// are accepted; def is returned otherwise.
func Time(a Accessor, name string, def time.Time) time.Time {
	v, ok := a.Get(name)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
