package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/source"
)

// ItemsCmd lists reminders from the source with the identity they resolve to
// and the habit, if any, they are linked to.
type ItemsCmd struct {
	List      []string `help:"Only show reminders in these lists."`
	Completed bool     `help:"Only show completed reminders."`
	Unlinked  bool     `help:"Only show reminders not linked to any habit."`
}

func (c *ItemsCmd) Run(ctx *cli.Context) error {
	src, err := ctx.Source()
	if err != nil {
		return err
	}
	items, err := src.FetchItems(context.Background(), source.Predicate{
		CompletedOnly: c.Completed,
		Lists:         c.List,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch reminders: %w", err)
	}

	all, err := ctx.Store.GetAllLinks()
	if err != nil {
		return err
	}
	habitNames := make(map[string]string)
	habits, err := ctx.Store.GetAllHabits(context.Background())
	if err != nil {
		return err
	}
	for _, h := range habits {
		habitNames[h.ID] = h.Name
	}

	resolver := identity.NewResolver()
	shown := 0
	for _, item := range items {
		linked := linkedHabits(resolver, item, all, habitNames)
		if c.Unlinked && len(linked) > 0 {
			continue
		}
		shown++

		key, ok := resolver.Resolve(item)
		keyLabel := "(unresolvable)"
		if ok {
			keyLabel = fmt.Sprintf("%s:%s", key.Kind, key.Value)
		}
		done := " "
		if item.IsCompleted {
			done = "x"
		}
		fmt.Printf("[%s] %-30s  %-15s  %s\n", done, item.Title, item.ListName, keyLabel)
		fmt.Printf("    local id: %s", item.LocalID)
		if item.ExternalID != "" {
			fmt.Printf("  external id: %s", item.ExternalID)
		}
		fmt.Println()
		if item.CompletedAt != nil {
			fmt.Printf("    completed: %s\n", item.CompletedAt.Local().Format(time.RFC822))
		}
		for _, name := range linked {
			fmt.Printf("    linked to: %s\n", name)
		}
	}

	if shown == 0 {
		fmt.Println("No reminders found.")
	}
	return nil
}

func linkedHabits(r *identity.Resolver, item models.ForeignItem, all []models.RequiredLink, names map[string]string) []string {
	keys := r.AllKeys(item)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, k.Value)
	}
	set := identity.NewKeySet(values...)

	var out []string
	for _, l := range all {
		if set.Intersects(l.IdentityKeys) {
			name := names[l.HabitID]
			if name == "" {
				name = l.HabitID
			}
			out = append(out, name)
		}
	}
	return out
}
