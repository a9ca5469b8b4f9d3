package models

import "time"

// ForeignItem is a reminder as reported by the external reminders provider.
// Only LocalID, Title and ListName are guaranteed; everything else may be absent.
type ForeignItem struct {
	LocalID         string     `json:"local_id" yaml:"local_id"`
	ExternalID      string     `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Title           string     `json:"title" yaml:"title"`
	ListName        string     `json:"list_name" yaml:"list_name"`
	DueAt           *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	IsCompleted     bool       `json:"is_completed" yaml:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	RecurrenceRules []string   `json:"recurrence_rules,omitempty" yaml:"recurrence_rules,omitempty"`
	// URL is the reserved URL-like field where the stamp token is embedded.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// IsRecurring reports whether the reminder carries any recurrence rule
func (i ForeignItem) IsRecurring() bool {
	return len(i.RecurrenceRules) > 0
}
