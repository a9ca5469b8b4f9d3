// Package snapshot materializes completion records into the read-only JSON
// cache consumed by the widget: one index of habits plus one day-grid file per
// habit.
package snapshot

import (
	"time"

	"github.com/julianstephens/habitlink/internal/constants"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Build projects habits and their completion records onto a grid of
// windowDays days ending on today. today's location decides day keys. Days
// with no record are incomplete.
func Build(habits []models.Habit, records []models.CompletionRecord, today time.Time, windowDays int, now time.Time) (models.HabitIndex, []models.TodaySnapshot) {
	windowDays = clampWindow(windowDays)
	loc := today.Location()
	end := utils.StartOfDay(today, loc)
	start := utils.AddDays(end, -(windowDays - 1))

	dayKeys := make([]string, 0, windowDays)
	for d := start; !d.After(end); d = utils.AddDays(d, 1) {
		dayKeys = append(dayKeys, utils.DayKey(d, loc))
	}
	todayKey := dayKeys[len(dayKeys)-1]

	byHabit := make(map[string]map[string]models.CompletionRecord, len(habits))
	for _, r := range records {
		m, ok := byHabit[r.HabitID]
		if !ok {
			m = make(map[string]models.CompletionRecord)
			byHabit[r.HabitID] = m
		}
		m[r.Day] = r
	}

	index := models.HabitIndex{UpdatedAt: now, Habits: make([]models.HabitIndexEntry, 0, len(habits))}
	snaps := make([]models.TodaySnapshot, 0, len(habits))
	for _, h := range habits {
		index.Habits = append(index.Habits, models.HabitIndexEntry{ID: h.ID, Name: h.Name})

		recs := byHabit[h.ID]
		snap := models.TodaySnapshot{
			UpdatedAt: now,
			HabitID:   h.ID,
			HabitName: h.Name,
			Days:      make([]models.DayCell, 0, len(dayKeys)),
		}
		if r, ok := recs[todayKey]; ok {
			snap.TotalRequired = r.TotalRequired
			snap.CompletedRequired = r.CompletedRequired
			snap.IsComplete = r.IsComplete
		}
		for _, key := range dayKeys {
			snap.Days = append(snap.Days, models.DayCell{DayKey: key, IsComplete: recs[key].IsComplete})
		}
		snaps = append(snaps, snap)
	}
	return index, snaps
}

func clampWindow(days int) int {
	if days < 1 {
		return 1
	}
	if days > constants.MaxSnapshotWindowDay {
		return constants.MaxSnapshotWindowDay
	}
	return days
}
