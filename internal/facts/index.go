// Package facts buckets completed reminders into per-day sets of identity keys.
package facts

import (
	"sort"

	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Index maps a day key (YYYY-MM-DD) to the keys completed that day.
type Index struct {
	days map[string]identity.KeySet
}

// Day returns the completed keys for dayKey. Days without facts yield an
// empty set, never nil.
func (ix Index) Day(dayKey string) identity.KeySet {
	if s, ok := ix.days[dayKey]; ok {
		return s
	}
	return identity.KeySet{}
}

// DayKeys lists the days that have at least one fact, oldest first.
func (ix Index) DayKeys() []string {
	keys := make([]string, 0, len(ix.days))
	for k := range ix.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diagnostics tallies why reminders did or did not become facts.
type Diagnostics struct {
	Seen         int `json:"seen"`
	Incomplete   int `json:"incomplete"`
	OutOfWindow  int `json:"out_of_window"`
	Unresolvable int `json:"unresolvable"`
	Indexed      int `json:"indexed"`
}

// Add accumulates other into d.
func (d *Diagnostics) Add(other Diagnostics) {
	d.Seen += other.Seen
	d.Incomplete += other.Incomplete
	d.OutOfWindow += other.OutOfWindow
	d.Unresolvable += other.Unresolvable
	d.Indexed += other.Indexed
}

// Build indexes each completed reminder under the day its completion
// timestamp falls on. A reminder lands in at most one day; reminders that are
// open, undated, outside w, or have no identity are counted and skipped.
func Build(items []models.ForeignItem, w Window, r *identity.Resolver) (Index, Diagnostics) {
	ix := Index{days: make(map[string]identity.KeySet)}
	var diag Diagnostics

	for _, item := range items {
		diag.Seen++
		if !item.IsCompleted || item.CompletedAt == nil {
			diag.Incomplete++
			continue
		}
		if !w.Contains(*item.CompletedAt) {
			diag.OutOfWindow++
			continue
		}
		key, ok := r.Resolve(item)
		if !ok {
			diag.Unresolvable++
			logger.Debug("Skipping reminder with no resolvable identity", "title", item.Title, "list", item.ListName)
			continue
		}

		day := utils.DayKey(*item.CompletedAt, w.Loc)
		set, ok := ix.days[day]
		if !ok {
			set = identity.KeySet{}
			ix.days[day] = set
		}
		set[key.Value] = struct{}{}
		diag.Indexed++
	}

	return ix, diag
}
