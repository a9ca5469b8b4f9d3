package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/habitlink/internal/backup"
	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/notifier"
	"github.com/julianstephens/habitlink/internal/reconcile"
	"github.com/julianstephens/habitlink/internal/snapshot"
	"github.com/julianstephens/habitlink/internal/source"
	"github.com/julianstephens/habitlink/internal/storage"
	"github.com/julianstephens/habitlink/internal/storage/postgres"
	"github.com/julianstephens/habitlink/internal/utils"
)

// Context is passed to every command's Run method.
type Context struct {
	Store storage.Provider

	// SourcePath is the reminders export file.
	SourcePath string
	// CacheDir and Timezone override the stored settings when non-empty.
	CacheDir string
	Timezone string

	// Now and Refresher are replaced in tests.
	Now       func() time.Time
	Refresher snapshot.Refresher

	src source.Source
}

// BackupManager returns the backup manager for a SQLite store.
func (c *Context) BackupManager() (*backup.Manager, error) {
	path := c.Store.GetConfigPath()
	if _, ok := c.Store.(*postgres.Store); ok || path == "" {
		return nil, errors.New("backups are only supported for SQLite storage")
	}
	return backup.NewManager(path), nil
}

// PerformAutomaticBackup backs up a SQLite database before a destructive
// operation. Failures are logged and otherwise ignored.
func (c *Context) PerformAutomaticBackup() {
	mgr, err := c.BackupManager()
	if err != nil {
		return
	}
	if _, err := os.Stat(c.Store.GetConfigPath()); err != nil {
		return
	}
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Settings returns the stored settings with flag overrides applied.
func (c *Context) Settings() (models.Settings, error) {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	if c.Timezone != "" {
		settings.Timezone = c.Timezone
	}
	if c.CacheDir != "" {
		settings.CacheDir = c.CacheDir
	}
	if settings.SnapshotWindowDays <= 0 {
		settings.SnapshotWindowDays = constants.DefaultSnapshotWindowDays
	}
	if settings.BackfillMaxDays <= 0 {
		settings.BackfillMaxDays = constants.DefaultBackfillMaxDays
	}
	return settings, nil
}

func (c *Context) Location(settings models.Settings) (*time.Location, error) {
	return utils.LoadLocation(settings.Timezone)
}

// Source returns the reminders source. The same instance is reused for the
// lifetime of the command so staged stamps are committed together.
func (c *Context) Source() (source.Source, error) {
	if c.src != nil {
		return c.src, nil
	}
	if strings.TrimSpace(c.SourcePath) == "" {
		return nil, errors.New("no reminders source configured, pass --source or set HABITLINK_SOURCE")
	}
	c.src = source.NewFileSource(storage.ExpandPath(c.SourcePath))
	return c.src, nil
}

// SetSource installs src in place of the file source.
func (c *Context) SetSource(src source.Source) {
	c.src = src
}

// SnapshotDir resolves where the read cache lives. Without an explicit
// directory it sits next to the SQLite database, or under the user config
// directory for PostgreSQL.
func (c *Context) SnapshotDir(settings models.Settings) (string, error) {
	if settings.CacheDir != "" {
		return storage.ExpandPath(settings.CacheDir), nil
	}
	configPath := c.Store.GetConfigPath()
	if configPath != "" && configPath != "postgresql" {
		return filepath.Join(filepath.Dir(configPath), constants.SnapshotDirName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, constants.AppName, constants.SnapshotDirName), nil
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// SnapshotWriter builds a cache writer for the current settings.
func (c *Context) SnapshotWriter(settings models.Settings) (*snapshot.Writer, error) {
	loc, err := c.Location(settings)
	if err != nil {
		return nil, err
	}
	dir, err := c.SnapshotDir(settings)
	if err != nil {
		return nil, err
	}
	refresher := c.Refresher
	if refresher == nil {
		refresher = notifier.New()
	}
	return snapshot.NewWriter(c.Store, dir, loc, refresher).WithClock(c.now), nil
}

// Engine wires the reconciliation engine to the store, the reminders source
// and the snapshot writer.
func (c *Context) Engine() (*reconcile.Engine, models.Settings, error) {
	settings, err := c.Settings()
	if err != nil {
		return nil, settings, err
	}
	loc, err := c.Location(settings)
	if err != nil {
		return nil, settings, err
	}
	src, err := c.Source()
	if err != nil {
		return nil, settings, err
	}
	writer, err := c.SnapshotWriter(settings)
	if err != nil {
		return nil, settings, err
	}

	engine := reconcile.New(c.Store, src, reconcile.Options{
		Loc:                loc,
		Now:                c.now,
		Snapshot:           writer,
		SnapshotWindowDays: settings.SnapshotWindowDays,
		MaxWindowDays:      settings.BackfillMaxDays,
	})
	return engine, settings, nil
}

// ResolveHabit finds a habit by id, falling back to its name.
func (c *Context) ResolveHabit(ref string) (models.Habit, error) {
	habit, err := c.Store.GetHabit(ref)
	if err == nil {
		return habit, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return models.Habit{}, err
	}
	habit, err = c.Store.GetHabitByName(ref)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.Habit{}, fmt.Errorf("habit %q not found", ref)
		}
		return models.Habit{}, err
	}
	return habit, nil
}

// PrintResult summarizes a reconciliation run on stdout.
func PrintResult(res reconcile.Result) {
	switch res.Status {
	case constants.RunStatusAccessDenied:
		fmt.Println("⚠ Reminders access denied: results were computed from no completions and not saved.")
	case constants.RunStatusCanceled:
		fmt.Printf("⚠ Run canceled after %s\n", res.LastCommittedDay)
	}

	if res.Start == res.End {
		fmt.Printf("Reconciled %s\n", res.Start)
	} else {
		fmt.Printf("Reconciled %s to %s (%d days)\n", res.Start, res.End, res.Days)
	}
	if res.Relinked > 0 {
		fmt.Printf("  Relinked %d stamped reminder(s)\n", res.Relinked)
	}
	for _, habitID := range res.MissingLinkLists {
		fmt.Printf("  ⚠ Links for habit %s could not be read\n", habitID)
	}

	complete := 0
	for _, r := range res.Records {
		if r.IsComplete {
			complete++
		}
	}
	fmt.Printf("  %d record(s), %d complete\n", len(res.Records), complete)
}
