package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Reader is what the writer needs from the primary store.
type Reader interface {
	GetAllHabits(ctx context.Context) ([]models.Habit, error)
	GetCompletionsInRange(ctx context.Context, startDay, endDay string) ([]models.CompletionRecord, error)
}

// Refresher signals the cache consumer.
type Refresher interface {
	Refresh(ctx context.Context, updatedAt time.Time) error
}

type Writer struct {
	mu        sync.Mutex
	store     Reader
	dir       string
	loc       *time.Location
	refresher Refresher
	now       func() time.Time
}

// NewWriter writes snapshots for store into dir. refresher may be nil.
func NewWriter(store Reader, dir string, loc *time.Location, refresher Refresher) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{
		store:     store,
		dir:       dir,
		loc:       loc,
		refresher: refresher,
		now:       time.Now,
	}
}

// WithClock replaces the writer's time source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

func (w *Writer) Dir() string { return w.dir }

// WriteSnapshot rebuilds every artifact. Each file is replaced atomically;
// habit files are written before the index that lists them, and files of
// deleted habits are removed after the index stops listing them. A failed
// refresh signal is logged and otherwise ignored.
func (w *Writer) WriteSnapshot(ctx context.Context, windowDays int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	windowDays = clampWindow(windowDays)
	now := w.now()
	today := utils.StartOfDay(now, w.loc)
	start := utils.AddDays(today, -(windowDays - 1))

	habits, err := w.store.GetAllHabits(ctx)
	if err != nil {
		return fmt.Errorf("loading habits: %w", err)
	}
	records, err := w.store.GetCompletionsInRange(ctx, utils.DayKey(start, w.loc), utils.DayKey(today, w.loc))
	if err != nil {
		return fmt.Errorf("loading completions: %w", err)
	}

	index, snaps := Build(habits, records, today, windowDays, now)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	keep := make(map[string]struct{}, len(snaps))
	for _, snap := range snaps {
		name, err := habitFile(snap.HabitID)
		if err != nil {
			logger.Warn("Skipping snapshot for habit", "habit", snap.HabitID, "error", err)
			continue
		}
		if err := writeJSON(filepath.Join(w.dir, name), snap); err != nil {
			return err
		}
		keep[name] = struct{}{}
	}
	if err := writeJSON(filepath.Join(w.dir, constants.SnapshotIndexFile), index); err != nil {
		return err
	}
	if err := w.prune(keep); err != nil {
		logger.Warn("Failed to prune stale snapshots", "dir", w.dir, "error", err)
	}

	logger.Debug("Snapshot written", "dir", w.dir, "habits", len(snaps), "days", windowDays)

	if w.refresher != nil {
		if err := w.refresher.Refresh(ctx, now); err != nil {
			logger.Debug("Refresh signal not delivered", "error", err)
		}
	}
	return nil
}

func (w *Writer) prune(keep map[string]struct{}) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isHabitFile(name) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return utils.WriteFileAtomic(path, data, constants.SnapshotFileMode)
}

func habitFile(habitID string) (string, error) {
	if habitID == "" || strings.ContainsAny(habitID, `/\`) || habitID == "." || habitID == ".." {
		return "", fmt.Errorf("invalid habit id %q", habitID)
	}
	return constants.SnapshotHabitPrefix + habitID + constants.SnapshotHabitSuffix, nil
}

func isHabitFile(name string) bool {
	return strings.HasPrefix(name, constants.SnapshotHabitPrefix) && strings.HasSuffix(name, constants.SnapshotHabitSuffix)
}

// ReadIndex loads the habit index from dir.
func ReadIndex(dir string) (models.HabitIndex, error) {
	var index models.HabitIndex
	err := readJSON(filepath.Join(dir, constants.SnapshotIndexFile), &index)
	return index, err
}

// ReadSnapshot loads one habit's snapshot from dir.
func ReadSnapshot(dir, habitID string) (models.TodaySnapshot, error) {
	var snap models.TodaySnapshot
	name, err := habitFile(habitID)
	if err != nil {
		return snap, fmt.Errorf("%w: %v", apperrors.ErrNotFound, err)
	}
	err = readJSON(filepath.Join(dir, name), &snap)
	return snap, err
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), apperrors.ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
