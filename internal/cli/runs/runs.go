package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/constants"
	"github.com/julianstephens/habitlink/internal/facts"
	"github.com/julianstephens/habitlink/internal/snapshot"
	"github.com/julianstephens/habitlink/internal/utils"
)

// SyncCmd reconciles today and refreshes the read cache.
type SyncCmd struct {
	JSON bool `help:"Print the run result as JSON."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	engine, _, err := ctx.Engine()
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.RunToday(runCtx)
	if err != nil {
		return err
	}
	if c.JSON {
		return printJSON(res)
	}
	cli.PrintResult(res)
	return nil
}

// BackfillCmd reconciles a range of past days. Interrupting it keeps every
// day already committed.
type BackfillCmd struct {
	Days int    `help:"Number of days ending today." default:"30"`
	From string `help:"First day (YYYY-MM-DD). Overrides --days."`
	To   string `help:"Last day (YYYY-MM-DD), default today."`
	JSON bool   `help:"Print the run result as JSON."`
}

func (c *BackfillCmd) Run(ctx *cli.Context) error {
	engine, settings, err := ctx.Engine()
	if err != nil {
		return err
	}

	w, err := c.window(engine.LastNDays, settings.BackfillMaxDays)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.RunWindow(runCtx, w)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if c.JSON {
		if jerr := printJSON(res); jerr != nil {
			return jerr
		}
	} else {
		cli.PrintResult(res)
	}

	if res.Status == constants.RunStatusCanceled {
		if rest, ok := res.Remaining(w); ok {
			fmt.Printf("Resume with: habitlink backfill --from %s --to %s\n",
				utils.DayKey(rest.Start, rest.Loc), utils.DayKey(rest.End, rest.Loc))
		}
		return errors.New("backfill interrupted")
	}
	return nil
}

// window resolves the flags against lastN, the engine's clock.
func (c *BackfillCmd) window(lastN func(int) facts.Window, maxDays int) (facts.Window, error) {
	if c.From == "" {
		if c.To != "" {
			return facts.Window{}, errors.New("--to requires --from")
		}
		if c.Days < 1 || c.Days > maxDays {
			return facts.Window{}, fmt.Errorf("--days must be between 1 and %d", maxDays)
		}
		return lastN(c.Days), nil
	}

	today := lastN(1)
	from, err := utils.ParseDay(c.From, today.Loc)
	if err != nil {
		return facts.Window{}, err
	}
	to := today.End
	if c.To != "" {
		if to, err = utils.ParseDay(c.To, today.Loc); err != nil {
			return facts.Window{}, err
		}
	}
	if to.After(today.End) {
		return facts.Window{}, fmt.Errorf("--to %s is in the future", c.To)
	}
	w, err := facts.NewWindow(from, to, today.Loc)
	if err != nil {
		return facts.Window{}, err
	}
	if n := w.Len(); n > maxDays {
		return facts.Window{}, fmt.Errorf("window of %d days exceeds the limit of %d", n, maxDays)
	}
	return w, nil
}

// SnapshotCmd rewrites the read cache from stored completion records without
// reconciling.
type SnapshotCmd struct {
	Days int    `help:"Days per habit grid. Defaults to the snapshot_window_days setting."`
	Show string `help:"Print the snapshot of this habit (name or ID) after writing."`
}

func (c *SnapshotCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Settings()
	if err != nil {
		return err
	}
	days := settings.SnapshotWindowDays
	if c.Days != 0 {
		if c.Days < 1 || c.Days > constants.MaxSnapshotWindowDay {
			return fmt.Errorf("--days must be between 1 and %d", constants.MaxSnapshotWindowDay)
		}
		days = c.Days
	}

	writer, err := ctx.SnapshotWriter(settings)
	if err != nil {
		return err
	}
	if err := writer.WriteSnapshot(context.Background(), days); err != nil {
		return err
	}
	fmt.Printf("Snapshot written to %s\n", writer.Dir())

	if c.Show == "" {
		return nil
	}
	habit, err := ctx.ResolveHabit(c.Show)
	if err != nil {
		return err
	}
	snap, err := snapshot.ReadSnapshot(writer.Dir(), habit.ID)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
