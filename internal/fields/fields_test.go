package fields

import (
	"testing"
	"time"
)

func TestMapHasFieldAndGet(t *testing.T) {
	m := Map{"title": "Stretch", "external_id": nil}

	if !m.HasField("title") {
		t.Error("expected title to be present")
	}
	if !m.HasField("external_id") {
		t.Error("a NULL column is still a present field")
	}
	if _, ok := m.Get("external_id"); ok {
		t.Error("a NULL column must not yield a value")
	}
	if m.HasField("is_required") {
		t.Error("unexpected is_required field")
	}
}

func TestBool(t *testing.T) {
	tests := []struct {
		name string
		m    Map
		def  bool
		want bool
	}{
		{name: "absent uses default true", m: Map{}, def: true, want: true},
		{name: "absent uses default false", m: Map{}, def: false, want: false},
		{name: "sqlite integer zero", m: Map{"f": int64(0)}, def: true, want: false},
		{name: "sqlite integer one", m: Map{"f": int64(1)}, def: false, want: true},
		{name: "native bool", m: Map{"f": true}, def: false, want: true},
		{name: "string true", m: Map{"f": "true"}, def: false, want: true},
		{name: "garbage string", m: Map{"f": "maybe"}, def: true, want: true},
		{name: "null", m: Map{"f": nil}, def: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bool(tt.m, "f", tt.def); got != tt.want {
				t.Errorf("Bool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		name string
		m    Map
		want []string
	}{
		{name: "absent", m: Map{}, want: nil},
		{name: "json array", m: Map{"k": `["a","b"]`}, want: []string{"a", "b"}},
		{name: "bare legacy string", m: Map{"k": "x-local-1"}, want: []string{"x-local-1"}},
		{name: "empty string", m: Map{"k": "  "}, want: nil},
		{name: "broken json", m: Map{"k": `["a",`}, want: nil},
		{name: "native slice", m: Map{"k": []string{"z"}}, want: []string{"z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Strings(tt.m, "k")
			if len(got) != len(tt.want) {
				t.Fatalf("Strings() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Strings()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStringIntTime(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	m := Map{
		"name":       "Read",
		"count":      "7",
		"n":          int64(3),
		"created_at": created.Format(time.RFC3339),
	}

	if got := String(m, "name", ""); got != "Read" {
		t.Errorf("String() = %q", got)
	}
	if got := String(m, "missing", "fallback"); got != "fallback" {
		t.Errorf("String() default = %q", got)
	}
	if got := Int(m, "count", 0); got != 7 {
		t.Errorf("Int(string) = %d", got)
	}
	if got := Int(m, "n", 0); got != 3 {
		t.Errorf("Int(int64) = %d", got)
	}
	if got := Time(m, "created_at", time.Time{}); !got.Equal(created) {
		t.Errorf("Time() = %v, want %v", got, created)
	}
	if got := Time(m, "missing", created); !got.Equal(created) {
		t.Errorf("Time() default = %v", got)
	}
}
