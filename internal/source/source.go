// Package source adapts the external reminders provider.
package source

import (
	"context"
	"time"

	"github.com/julianstephens/habitlink/internal/models"
)

// Source is the reminders provider as seen by reconciliation and linking.
// Implementations return an error wrapping errors.ErrAccessDenied when the
// user has not granted, or has revoked, access.
type Source interface {
	FetchItems(ctx context.Context, p Predicate) ([]models.ForeignItem, error)
	Save(ctx context.Context, item models.ForeignItem) error
	Commit(ctx context.Context) error
}

// Predicate filters fetched reminders. Zero values mean unbounded.
type Predicate struct {
	// CompletedFrom and CompletedTo bound the completion timestamp, half-open [From, To).
	CompletedFrom time.Time
	CompletedTo   time.Time
	CompletedOnly bool
	Lists         []string
}

// Matches reports whether item passes the predicate.
func (p Predicate) Matches(item models.ForeignItem) bool {
	if len(p.Lists) > 0 {
		found := false
		for _, l := range p.Lists {
			if l == item.ListName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	bounded := !p.CompletedFrom.IsZero() || !p.CompletedTo.IsZero()
	if !p.CompletedOnly && !bounded {
		return true
	}
	if !item.IsCompleted || item.CompletedAt == nil {
		return false
	}
	at := *item.CompletedAt
	if !p.CompletedFrom.IsZero() && at.Before(p.CompletedFrom) {
		return false
	}
	if !p.CompletedTo.IsZero() && !at.Before(p.CompletedTo) {
		return false
	}
	return true
}

func filter(items []models.ForeignItem, p Predicate) []models.ForeignItem {
	out := make([]models.ForeignItem, 0, len(items))
	for _, item := range items {
		if p.Matches(item) {
			out = append(out, item)
		}
	}
	return out
}
