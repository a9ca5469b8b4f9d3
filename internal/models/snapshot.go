package models

import "time"

// HabitIndexEntry identifies one habit in the snapshot index
type HabitIndexEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HabitIndex lets the cache consumer enumerate available habits
type HabitIndex struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Habits    []HabitIndexEntry `json:"habits"`
}

// DayCell is one day of a habit's grid
type DayCell struct {
	DayKey     string `json:"dayKey"`
	IsComplete bool   `json:"isComplete"`
}

// TodaySnapshot is the per-habit cache artifact. Days run oldest to newest.
type TodaySnapshot struct {
	UpdatedAt         time.Time `json:"updatedAt"`
	HabitID           string    `json:"habitId"`
	HabitName         string    `json:"habitName"`
	TotalRequired     int       `json:"totalRequired"`
	CompletedRequired int       `json:"completedRequired"`
	IsComplete        bool      `json:"isComplete"`
	Days              []DayCell `json:"days"`
}
