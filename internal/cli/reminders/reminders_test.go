package reminders

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitlink/internal/cli"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/source"
	"github.com/julianstephens/habitlink/internal/storage/sqlite"
)

func setupTestContext(t *testing.T, items ...models.ForeignItem) (*cli.Context, *source.Memory) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.AddHabit(models.Habit{ID: "h1", Name: "Read"}); err != nil {
		t.Fatalf("AddHabit() failed: %v", err)
	}

	src := source.NewMemory(items...)
	ctx := &cli.Context{Store: store}
	ctx.SetSource(src)
	return ctx, src
}

func TestLinkAddRemove(t *testing.T) {
	ctx, src := setupTestContext(t, models.ForeignItem{LocalID: "L1", ExternalID: "E1", Title: "Chapter", ListName: "Books"})

	if err := (&LinkAddCmd{Habit: "Read", Reminder: "E1"}).Run(ctx); err != nil {
		t.Fatalf("link add failed: %v", err)
	}

	links, err := ctx.Store.GetLinksForHabit("h1")
	if err != nil {
		t.Fatalf("GetLinksForHabit() failed: %v", err)
	}
	if len(links) != 1 || !links[0].IsRequired {
		t.Fatalf("links = %+v, want one required link", links)
	}
	if _, _, ok := identity.ParseStampURL(src.Items()[0].URL); !ok {
		t.Error("reminder was not stamped")
	}

	if err := (&ItemsCmd{}).Run(ctx); err != nil {
		t.Errorf("items failed: %v", err)
	}
	if err := (&LinkListCmd{Habit: "h1"}).Run(ctx); err != nil {
		t.Errorf("link list failed: %v", err)
	}

	if err := (&LinkRemoveCmd{ID: links[0].ID}).Run(ctx); err != nil {
		t.Fatalf("link remove failed: %v", err)
	}
	if _, err := ctx.Store.GetLink(links[0].ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetLink() error = %v, want ErrNotFound", err)
	}
	if src.Items()[0].URL != "" {
		t.Error("stamp was not cleared")
	}
}

func TestLinkAddOptional(t *testing.T) {
	ctx, _ := setupTestContext(t, models.ForeignItem{LocalID: "L1", Title: "Chapter"})

	if err := (&LinkAddCmd{Habit: "h1", Reminder: "L1", Optional: true}).Run(ctx); err != nil {
		t.Fatalf("link add failed: %v", err)
	}
	links, _ := ctx.Store.GetLinksForHabit("h1")
	if len(links) != 1 || links[0].IsRequired {
		t.Fatalf("links = %+v, want one optional link", links)
	}

	if err := (&LinkRequireCmd{ID: links[0].ID}).Run(ctx); err != nil {
		t.Fatalf("link require failed: %v", err)
	}
	got, _ := ctx.Store.GetLink(links[0].ID)
	if !got.IsRequired {
		t.Error("link should be required")
	}
}

func TestLinkAddErrors(t *testing.T) {
	ctx, src := setupTestContext(t, models.ForeignItem{LocalID: "L1", Title: "Chapter"})

	if err := (&LinkAddCmd{Habit: "nope", Reminder: "L1"}).Run(ctx); err == nil {
		t.Error("expected an error for an unknown habit")
	}
	if err := (&LinkAddCmd{Habit: "Read", Reminder: "missing"}).Run(ctx); err == nil {
		t.Error("expected an error for an unknown reminder")
	}

	src.DenyAccess = true
	if err := (&LinkAddCmd{Habit: "Read", Reminder: "L1"}).Run(ctx); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Errorf("error = %v, want ErrAccessDenied", err)
	}
	if src.Commits != 0 {
		t.Error("nothing should be stamped")
	}
}
