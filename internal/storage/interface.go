package storage

import (
	"context"

	"github.com/julianstephens/habitlink/internal/fields"
	"github.com/julianstephens/habitlink/internal/models"
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error
	// Migrate applies embedded migrations up to target, 0 meaning latest.
	Migrate(target int, logFn func(string)) (int, error)

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Habits
	AddHabit(models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetHabitByName(name string) (models.Habit, error)
	GetAllHabits(ctx context.Context) ([]models.Habit, error)
	// DeleteHabit removes the habit together with its links and completion records.
	DeleteHabit(id string) error

	// Links
	SaveLink(models.RequiredLink) error
	GetLink(id string) (models.RequiredLink, error)
	GetLinksForHabit(habitID string) ([]models.RequiredLink, error)
	GetAllLinks() ([]models.RequiredLink, error)
	// LinkRecords returns the raw link rows for a habit in whatever shape the
	// current schema revision stores them.
	LinkRecords(ctx context.Context, habitID string) ([]fields.Accessor, error)
	SetLinkRequired(id string, required bool) error
	DeleteLink(id string) error

	// Completions
	// SaveCompletions finds or creates one record per (habit, day) and updates
	// it, all in a single transaction.
	SaveCompletions(ctx context.Context, records []models.CompletionRecord) error
	GetCompletion(habitID, day string) (models.CompletionRecord, error)
	GetCompletionsInRange(ctx context.Context, startDay, endDay string) ([]models.CompletionRecord, error)
	CountDuplicateCompletions() (int, error)

	// Utils
	GetConfigPath() string
	SchemaStatus() (current, pending int, err error)
}
