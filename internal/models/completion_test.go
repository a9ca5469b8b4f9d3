package models

import "testing"

func TestNewSummary(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		want      CompletionSummary
	}{
		{name: "partial", total: 2, completed: 1, want: CompletionSummary{2, 1, false}},
		{name: "all done", total: 1, completed: 1, want: CompletionSummary{1, 1, true}},
		{name: "zero required is never complete", total: 0, completed: 0, want: CompletionSummary{0, 0, false}},
		{name: "zero required with stray completions", total: 0, completed: 3, want: CompletionSummary{0, 0, false}},
		{name: "completed clamped to total", total: 2, completed: 5, want: CompletionSummary{2, 2, true}},
		{name: "negative inputs", total: -1, completed: -4, want: CompletionSummary{0, 0, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSummary(tt.total, tt.completed)
			if got != tt.want {
				t.Errorf("NewSummary(%d, %d) = %+v, want %+v", tt.total, tt.completed, got, tt.want)
			}
			if got.CompletedRequired > got.TotalRequired {
				t.Errorf("completed %d exceeds total %d", got.CompletedRequired, got.TotalRequired)
			}
		})
	}
}

func TestCompletionRecordValid(t *testing.T) {
	valid := NewCompletionRecord("h1", "2026-01-01", NewSummary(2, 2))
	if !valid.Valid() {
		t.Errorf("expected %+v to be valid", valid)
	}

	overCounted := CompletionRecord{HabitID: "h1", Day: "2026-01-01", TotalRequired: 1, CompletedRequired: 2}
	if overCounted.Valid() {
		t.Error("completed > total must be invalid")
	}

	wrongFlag := CompletionRecord{HabitID: "h1", Day: "2026-01-01", TotalRequired: 0, CompletedRequired: 0, IsComplete: true}
	if wrongFlag.Valid() {
		t.Error("zero-required record marked complete must be invalid")
	}
}

func TestAddIdentityKeys(t *testing.T) {
	link := RequiredLink{IdentityKeys: []string{"local-1"}}

	if !link.AddIdentityKeys("tok-1", "local-1", "", "tok-1") {
		t.Fatal("expected a key to be added")
	}
	want := []string{"local-1", "tok-1"}
	if len(link.IdentityKeys) != len(want) {
		t.Fatalf("got keys %v, want %v", link.IdentityKeys, want)
	}
	for i := range want {
		if link.IdentityKeys[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, link.IdentityKeys[i], want[i])
		}
	}

	if link.AddIdentityKeys("local-1") {
		t.Error("re-adding an existing key should report no change")
	}
}
