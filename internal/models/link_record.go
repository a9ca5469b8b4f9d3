package models

import (
	"time"

	"github.com/julianstephens/habitlink/internal/fields"
)

// LinkFromRecord projects a stored link row of any schema revision.
//
// Rows written before links could be optional have no is_required column and
// are required. Rows written before identity_keys existed fall back to the
// single reminder_id column.
func LinkFromRecord(rec fields.Accessor) RequiredLink {
	link := RequiredLink{
		ID:         fields.String(rec, "id", ""),
		HabitID:    fields.String(rec, "habit_id", ""),
		Title:      fields.String(rec, "title", ""),
		IsRequired: fields.Bool(rec, "is_required", true),
		CreatedAt:  fields.Time(rec, "created_at", time.Time{}),
	}

	link.AddIdentityKeys(fields.Strings(rec, "identity_keys")...)
	if len(link.IdentityKeys) == 0 {
		link.AddIdentityKeys(fields.Strings(rec, "reminder_id")...)
	}
	return link
}
