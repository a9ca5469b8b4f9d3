package models

import "time"

// Habit represents a recurring goal tracked per calendar day
type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RequiredLink associates a habit with one reminder. IdentityKeys holds every
// identity ever recorded for the reminder, oldest first, without duplicates.
type RequiredLink struct {
	ID           string    `json:"id"`
	HabitID      string    `json:"habit_id"`
	IdentityKeys []string  `json:"identity_keys"`
	Title        string    `json:"title"`
	IsRequired   bool      `json:"is_required"`
	CreatedAt    time.Time `json:"created_at"`
}

// AddIdentityKeys appends keys not already present, preserving order.
// It reports whether anything was added.
func (l *RequiredLink) AddIdentityKeys(keys ...string) bool {
	seen := make(map[string]struct{}, len(l.IdentityKeys))
	for _, k := range l.IdentityKeys {
		seen[k] = struct{}{}
	}
	added := false
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		l.IdentityKeys = append(l.IdentityKeys, k)
		added = true
	}
	return added
}
