package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/constants"
	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
	"github.com/julianstephens/habitlink/internal/snapshot"
	"github.com/julianstephens/habitlink/internal/utils"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with their links and today's status."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit with its links and completion records."`
	Log    HabitLogCmd    `cmd:"" help:"Show habit log (ASCII history)."`
}

type HabitAddCmd struct {
	Name string `arg:"" help:"Habit name."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("habit name cannot be empty")
	}

	_, err := ctx.Store.GetHabitByName(name)
	if err == nil {
		return fmt.Errorf("habit with name %q already exists", name)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	habit := models.Habit{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := ctx.Store.AddHabit(habit); err != nil {
		return err
	}

	fmt.Printf("Added habit: %s (%s)\n", habit.Name, habit.ID)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(context.Background())
	if err != nil {
		return err
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	settings, err := ctx.Settings()
	if err != nil {
		return err
	}
	loc, err := ctx.Location(settings)
	if err != nil {
		return err
	}
	today := utils.DayKey(time.Now(), loc)

	for _, habit := range habits {
		links, err := ctx.Store.GetLinksForHabit(habit.ID)
		if err != nil {
			return err
		}
		required := 0
		for _, l := range links {
			if l.IsRequired {
				required++
			}
		}

		status := "not reconciled"
		rec, err := ctx.Store.GetCompletion(habit.ID, today)
		switch {
		case err == nil:
			status = fmt.Sprintf("%d/%d", rec.CompletedRequired, rec.TotalRequired)
			if rec.IsComplete {
				status += " ✓"
			}
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		fmt.Printf("%s  %s  links: %d (%d required)  today: %s\n", habit.ID, habit.Name, len(links), required, status)
	}
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or ID."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	habit, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteHabit(habit.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted habit: %s\n", habit.Name)
	fmt.Println("Run 'habitlink snapshot' to drop it from the read cache.")
	return nil
}

type HabitLogCmd struct {
	Days  int    `help:"Number of days to show." default:"14"`
	Habit string `help:"Show log for specific habit only."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	if c.Days < 1 || c.Days > constants.MaxSnapshotWindowDay {
		return fmt.Errorf("--days must be between 1 and %d", constants.MaxSnapshotWindowDay)
	}

	habits, err := ctx.Store.GetAllHabits(context.Background())
	if err != nil {
		return err
	}
	if c.Habit != "" {
		habit, err := ctx.ResolveHabit(c.Habit)
		if err != nil {
			return err
		}
		habits = []models.Habit{habit}
	}
	if len(habits) == 0 {
		fmt.Println("No habits found.")
		return nil
	}

	settings, err := ctx.Settings()
	if err != nil {
		return err
	}
	loc, err := ctx.Location(settings)
	if err != nil {
		return err
	}

	now := time.Now()
	today := utils.StartOfDay(now, loc)
	start := utils.AddDays(today, -(c.Days - 1))
	records, err := ctx.Store.GetCompletionsInRange(context.Background(), utils.DayKey(start, loc), utils.DayKey(today, loc))
	if err != nil {
		return err
	}
	_, snaps := snapshot.Build(habits, records, today, c.Days, now)

	const maxNameLen = 20
	fmt.Printf("Habit log (last %d days):\n\n", c.Days)
	fmt.Print(strings.Repeat(" ", maxNameLen))
	for i := 0; i < c.Days; i++ {
		fmt.Printf(" %5s", utils.AddDays(start, i).Format("01/02"))
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", maxNameLen+6*c.Days))

	for _, snap := range snaps {
		name := snap.HabitName
		if len(name) > maxNameLen {
			name = name[:maxNameLen-3] + "..."
		}
		fmt.Printf("%-*s", maxNameLen, name)
		for _, cell := range snap.Days {
			mark := "·"
			if cell.IsComplete {
				mark = "■"
			}
			fmt.Printf(" %5s", mark)
		}
		fmt.Println()
	}
	return nil
}
