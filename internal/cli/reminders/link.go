package reminders

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/identity"
	"github.com/julianstephens/habitlink/internal/links"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/source"
)

type LinkCmd struct {
	Add      LinkAddCmd      `cmd:"" help:"Stamp a reminder and link it to a habit."`
	List     LinkListCmd     `cmd:"" help:"List links."`
	Require  LinkRequireCmd  `cmd:"" help:"Count a link toward its habit's completion."`
	Optional LinkOptionalCmd `cmd:"" help:"Keep a link but stop counting it."`
	Remove   LinkRemoveCmd   `cmd:"" help:"Remove a link."`
}

type LinkAddCmd struct {
	Habit    string `arg:"" help:"Habit name or ID."`
	Reminder string `arg:"" help:"Reminder local or external ID (see 'habitlink items')."`
	Optional bool   `help:"Link without counting it toward completion."`
}

func (c *LinkAddCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	src, err := ctx.Source()
	if err != nil {
		return err
	}

	bg := context.Background()
	items, err := src.FetchItems(bg, source.Predicate{})
	if err != nil {
		return fmt.Errorf("failed to fetch reminders: %w", err)
	}
	item, ok := findItem(items, c.Reminder)
	if !ok {
		return fmt.Errorf("reminder %q not found", c.Reminder)
	}

	linker := links.NewLinker(ctx.Store, src, nil)
	link, err := linker.Link(bg, habit.ID, &item)
	if err != nil {
		return err
	}

	if c.Optional && link.IsRequired {
		if err := ctx.Store.SetLinkRequired(link.ID, false); err != nil {
			return err
		}
		link.IsRequired = false
	}

	fmt.Printf("Linked %q to %s (%s)\n", link.Title, habit.Name, requiredLabel(link.IsRequired))
	fmt.Printf("  Link ID: %s\n", link.ID)
	fmt.Printf("  Keys:    %s\n", strings.Join(link.IdentityKeys, ", "))
	return nil
}

func findItem(items []models.ForeignItem, ref string) (models.ForeignItem, bool) {
	for _, item := range items {
		if item.LocalID == ref || item.ExternalID == ref {
			return item, true
		}
	}
	// Stored keys are normalized; accept those too.
	norm := identity.Normalize(ref)
	for _, item := range items {
		if identity.Normalize(item.LocalID) == norm || identity.Normalize(item.ExternalID) == norm {
			return item, true
		}
	}
	return models.ForeignItem{}, false
}

type LinkListCmd struct {
	Habit string `arg:"" optional:"" help:"Habit name or ID."`
}

func (c *LinkListCmd) Run(ctx *cli.Context) error {
	var list []models.RequiredLink
	if c.Habit != "" {
		habit, err := ctx.ResolveHabit(c.Habit)
		if err != nil {
			return err
		}
		list, err = ctx.Store.GetLinksForHabit(habit.ID)
		if err != nil {
			return err
		}
	} else {
		var err error
		list, err = ctx.Store.GetAllLinks()
		if err != nil {
			return err
		}
	}

	if len(list) == 0 {
		fmt.Println("No links found.")
		return nil
	}

	names := make(map[string]string)
	for _, l := range list {
		if _, ok := names[l.HabitID]; ok {
			continue
		}
		if h, err := ctx.Store.GetHabit(l.HabitID); err == nil {
			names[l.HabitID] = h.Name
		} else {
			names[l.HabitID] = l.HabitID
		}
	}

	for _, l := range list {
		fmt.Printf("%s  %-20s  %-30s  %s\n", l.ID, names[l.HabitID], l.Title, requiredLabel(l.IsRequired))
		fmt.Printf("    keys: %s\n", strings.Join(l.IdentityKeys, ", "))
	}
	return nil
}

type LinkRequireCmd struct {
	ID string `arg:"" help:"Link ID."`
}

func (c *LinkRequireCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.SetLinkRequired(c.ID, true); err != nil {
		return err
	}
	fmt.Printf("Link %s is now required. Run 'habitlink sync' to recount today.\n", c.ID)
	return nil
}

type LinkOptionalCmd struct {
	ID string `arg:"" help:"Link ID."`
}

func (c *LinkOptionalCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.SetLinkRequired(c.ID, false); err != nil {
		return err
	}
	fmt.Printf("Link %s is now optional. Run 'habitlink sync' to recount today.\n", c.ID)
	return nil
}

type LinkRemoveCmd struct {
	ID string `arg:"" help:"Link ID."`
}

func (c *LinkRemoveCmd) Run(ctx *cli.Context) error {
	src, err := ctx.Source()
	if err != nil {
		return err
	}
	bg := context.Background()
	items, err := src.FetchItems(bg, source.Predicate{})
	if err != nil {
		return fmt.Errorf("failed to fetch reminders, the stamp must be cleared before the link is removed: %w", err)
	}

	n, err := links.NewLinker(ctx.Store, src, nil).Unlink(bg, c.ID, items)
	if err != nil {
		return err
	}
	fmt.Printf("Removed link %s (%d reminder(s) unstamped)\n", c.ID, n)
	return nil
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}
