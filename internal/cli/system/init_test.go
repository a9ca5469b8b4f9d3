package system

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/storage/sqlite"
)

func setupTestInitDB(t *testing.T) (*cli.Context, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := sqlite.NewStore(dbPath)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return &cli.Context{Store: store}, dbPath
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init command failed: %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
	if _, err := ctx.Store.GetSettings(); err != nil {
		t.Errorf("default settings missing: %v", err)
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _ := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := ctx.Store.AddHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AddHabit() failed: %v", err)
	}
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	if _, err := ctx.Store.GetHabit("h1"); err != nil {
		t.Errorf("re-running init lost data: %v", err)
	}
}

func TestInitCmd_ForceResets(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := ctx.Store.AddHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AddHabit() failed: %v", err)
	}
	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("forced init failed: %v", err)
	}
	habits, err := ctx.Store.GetAllHabits(context.Background())
	if err != nil {
		t.Fatalf("GetAllHabits() failed: %v", err)
	}
	if len(habits) != 0 {
		t.Errorf("expected empty database after --force, got %d habits", len(habits))
	}

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(dbPath), "backups"))
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one automatic backup before reset, got %d (err: %v)", len(entries), err)
	}
}

func TestInitCmd_CopiesFromAnotherDatabase(t *testing.T) {
	srcPath := filepath.Join(t.TempDir(), "old.db")
	src := sqlite.NewStore(srcPath)
	if err := src.Init(); err != nil {
		t.Fatalf("failed to init source: %v", err)
	}
	bg := context.Background()
	if err := src.AddHabit(models.Habit{ID: "h1", Name: "Read", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AddHabit() failed: %v", err)
	}
	if err := src.SaveLink(models.RequiredLink{ID: "l1", HabitID: "h1", IdentityKeys: []string{"E1"}, Title: "Chapter", IsRequired: true}); err != nil {
		t.Fatalf("SaveLink() failed: %v", err)
	}
	rec := models.NewCompletionRecord("h1", "2025-03-10", models.NewSummary(1, 1))
	if err := src.SaveCompletions(bg, []models.CompletionRecord{rec}); err != nil {
		t.Fatalf("SaveCompletions() failed: %v", err)
	}
	src.Close()

	ctx, _ := setupTestInitDB(t)
	if err := (&InitCmd{From: srcPath}).Run(ctx); err != nil {
		t.Fatalf("init --from failed: %v", err)
	}

	if _, err := ctx.Store.GetHabit("h1"); err != nil {
		t.Errorf("habit not copied: %v", err)
	}
	if link, err := ctx.Store.GetLink("l1"); err != nil || len(link.IdentityKeys) != 1 {
		t.Errorf("link not copied: %+v, %v", link, err)
	}
	got, err := ctx.Store.GetCompletion("h1", "2025-03-10")
	if err != nil || !got.IsComplete {
		t.Errorf("completion not copied: %+v, %v", got, err)
	}
}

func TestInitCmd_ForceRefusesSameSource(t *testing.T) {
	ctx, dbPath := setupTestInitDB(t)
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := (&InitCmd{Force: true, From: dbPath}).Run(ctx); err == nil {
		t.Error("expected --force with the same source to fail")
	}
}
