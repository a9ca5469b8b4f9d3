// Package reconcile computes per-habit, per-day completion from reminder
// facts and persists the results.
package reconcile

import (
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/models"
)

// Summarize counts how many of the required links were completed, given the
// keys completed on one day. A link is done when any of its stored keys, after
// normalization, is among the facts.
func Summarize(required []models.RequiredLink, facts identity.KeySet) models.CompletionSummary {
	done := 0
	for _, link := range required {
		if facts.Intersects(link.IdentityKeys) {
			done++
		}
	}
	return models.NewSummary(len(required), done)
}
