package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/logger"
	"github.com/julianstephens/habitlink/internal/models"
)

// Store is the slice of the primary store the linker writes through.
type Store interface {
	RecordReader
	GetHabit(id string) (models.Habit, error)
	GetAllLinks() ([]models.RequiredLink, error)
	GetLink(id string) (models.RequiredLink, error)
	SaveLink(link models.RequiredLink) error
	DeleteLink(id string) error
}

// Linker attaches reminders to habits. The reminder is stamped and the stamp
// committed to the source before anything is written locally.
type Linker struct {
	store    Store
	writer   identity.Writer
	stamper  *identity.Stamper
	resolver *identity.Resolver
	lookup   *Lookup
	newID    func() string
}

func NewLinker(store Store, w identity.Writer, resolver *identity.Resolver) *Linker {
	if resolver == nil {
		resolver = identity.NewResolver()
	}
	return &Linker{
		store:    store,
		writer:   w,
		stamper:  identity.NewStamper(),
		resolver: resolver,
		lookup:   NewLookup(store),
		newID:    uuid.NewString,
	}
}

// Link stamps item and records it as a required link of habitID. Linking a
// reminder that is already attached to the habit merges its current keys into
// the existing link. On a stamp failure nothing is saved and the error wraps
// ErrStampCommit.
func (l *Linker) Link(ctx context.Context, habitID string, item *models.ForeignItem) (models.RequiredLink, error) {
	if _, err := l.store.GetHabit(habitID); err != nil {
		return models.RequiredLink{}, err
	}

	token, stamped, err := l.stamper.Stamp(ctx, l.writer, item, habitID)
	if err != nil {
		return models.RequiredLink{}, err
	}
	if !stamped {
		logger.Debug("Reminder already stamped", "local_id", item.LocalID, "token", token)
	}

	link, _, err := l.attach(ctx, habitID, *item)
	return link, err
}

// Relink repairs reminders that were stamped but whose local link was never
// saved, such as after a crash between the source commit and the local write.
// Items are matched to habits through the habit id in their stamp URL; no item
// is stamped again. It returns how many links were created.
func (l *Linker) Relink(ctx context.Context, items []models.ForeignItem) (int, error) {
	all, err := l.store.GetAllLinks()
	if err != nil {
		return 0, fmt.Errorf("loading links: %w", err)
	}
	known := identity.NewKeySet()
	for _, link := range all {
		for _, k := range link.IdentityKeys {
			known.Add(k)
		}
	}

	count := 0
	for _, item := range items {
		token, habitID, ok := identity.ParseStampURL(item.URL)
		if !ok || habitID == "" || known.Has(token) {
			continue
		}
		if _, err := l.store.GetHabit(habitID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.Debug("Stamped reminder names unknown habit", "local_id", item.LocalID, "habit", habitID)
				continue
			}
			return count, err
		}

		link, created, err := l.attach(ctx, habitID, item)
		if err != nil {
			return count, err
		}
		known.Add(token)
		if created {
			count++
			logger.Info("Relinked stamped reminder", "habit", habitID, "link", link.ID, "title", item.Title)
		}
	}
	return count, nil
}

// Unlink removes a link. Reminders among items that carry one of the link's
// stamp tokens are unstamped first so Relink cannot bring the link back; if
// that fails the link is kept. Tokens shared with another link are left
// alone. It returns how many reminders were unstamped.
func (l *Linker) Unlink(ctx context.Context, linkID string, items []models.ForeignItem) (int, error) {
	link, err := l.store.GetLink(linkID)
	if err != nil {
		return 0, err
	}
	keys := identity.NewKeySet(link.IdentityKeys...)

	// A token another link still records stays on the reminder.
	all, err := l.store.GetAllLinks()
	if err != nil {
		return 0, fmt.Errorf("loading links: %w", err)
	}
	shared := identity.NewKeySet()
	for _, other := range all {
		if other.ID == link.ID {
			continue
		}
		for _, k := range other.IdentityKeys {
			shared.Add(k)
		}
	}

	cleared := 0
	for i := range items {
		token, _, ok := identity.ParseStampURL(items[i].URL)
		if !ok || !keys.Has(token) || shared.Has(token) {
			continue
		}
		done, err := l.stamper.Unstamp(ctx, l.writer, &items[i])
		if err != nil {
			return cleared, err
		}
		if done {
			cleared++
		}
	}

	if err := l.store.DeleteLink(linkID); err != nil {
		return cleared, err
	}
	return cleared, nil
}

// attach saves item's keys on the habit's matching link, creating one when no
// existing link shares a key with it.
func (l *Linker) attach(ctx context.Context, habitID string, item models.ForeignItem) (models.RequiredLink, bool, error) {
	keys := l.resolver.AllKeys(item)
	if len(keys) == 0 {
		return models.RequiredLink{}, false, fmt.Errorf("reminder %q: %w", item.Title, apperrors.ErrUnresolvable)
	}
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, k.Value)
	}
	itemKeys := identity.NewKeySet(values...)

	existing, err := l.lookup.AllLinks(ctx, habitID)
	if err != nil {
		return models.RequiredLink{}, false, err
	}
	for _, link := range existing {
		if !itemKeys.Intersects(link.IdentityKeys) {
			continue
		}
		changed := link.AddIdentityKeys(values...)
		if link.Title != item.Title && item.Title != "" {
			link.Title = item.Title
			changed = true
		}
		if changed {
			if err := l.store.SaveLink(link); err != nil {
				return models.RequiredLink{}, false, fmt.Errorf("updating link %s: %w", link.ID, err)
			}
		}
		return link, false, nil
	}

	link := models.RequiredLink{
		ID:         l.newID(),
		HabitID:    habitID,
		Title:      item.Title,
		IsRequired: true,
	}
	link.AddIdentityKeys(values...)
	if err := l.store.SaveLink(link); err != nil {
		return models.RequiredLink{}, false, fmt.Errorf("saving link: %w", err)
	}
	return link, true, nil
}
