package models

// CompletionSummary is the outcome of reconciling one habit on one day
type CompletionSummary struct {
	TotalRequired     int  `json:"total_required"`
	CompletedRequired int  `json:"completed_required"`
	IsComplete        bool `json:"is_complete"`
}

// NewSummary clamps completed into [0, total] and derives IsComplete.
// A habit with no required links is never complete.
func NewSummary(total, completed int) CompletionSummary {
	if total < 0 {
		total = 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	return CompletionSummary{
		TotalRequired:     total,
		CompletedRequired: completed,
		IsComplete:        total > 0 && completed == total,
	}
}

// CompletionRecord is the persisted per-(habit, day) reconciliation result
type CompletionRecord struct {
	HabitID           string `json:"habit_id"`
	Day               string `json:"day"` // YYYY-MM-DD format
	TotalRequired     int    `json:"total_required"`
	CompletedRequired int    `json:"completed_required"`
	IsComplete        bool   `json:"is_complete"`
}

// NewCompletionRecord builds a record for habitID on day from a summary
func NewCompletionRecord(habitID, day string, s CompletionSummary) CompletionRecord {
	return CompletionRecord{
		HabitID:           habitID,
		Day:               day,
		TotalRequired:     s.TotalRequired,
		CompletedRequired: s.CompletedRequired,
		IsComplete:        s.IsComplete,
	}
}

// Summary returns the summary portion of the record
func (r CompletionRecord) Summary() CompletionSummary {
	return CompletionSummary{
		TotalRequired:     r.TotalRequired,
		CompletedRequired: r.CompletedRequired,
		IsComplete:        r.IsComplete,
	}
}

// Valid reports whether the record satisfies completed <= total and the
// completeness rule.
func (r CompletionRecord) Valid() bool {
	if r.CompletedRequired < 0 || r.CompletedRequired > r.TotalRequired {
		return false
	}
	return r.IsComplete == (r.TotalRequired > 0 && r.CompletedRequired == r.TotalRequired)
}
