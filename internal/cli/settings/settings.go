package settings

import (
	"fmt"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/constants"
	"github.com/julianstephens/habitlink/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	Timezone           *string `help:"IANA timezone for day boundaries, or Local."`
	SnapshotWindowDays *int    `help:"Days per habit grid in the snapshot cache."`
	CacheDir           *string `help:"Snapshot cache directory. Empty means next to the database."`
	BackfillMaxDays    *int    `help:"Largest window a single backfill may cover."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		cacheDir := settings.CacheDir
		if cacheDir == "" {
			cacheDir = "(next to database)"
		}
		fmt.Println("Current Settings:")
		fmt.Printf("  Timezone:             %s\n", settings.Timezone)
		fmt.Printf("  Snapshot Window:      %d days\n", settings.SnapshotWindowDays)
		fmt.Printf("  Cache Dir:            %s\n", cacheDir)
		fmt.Printf("  Backfill Max:         %d days\n", settings.BackfillMaxDays)
		return nil
	}

	updated := false
	if c.Timezone != nil {
		if _, err := utils.LoadLocation(*c.Timezone); err != nil {
			return err
		}
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.SnapshotWindowDays != nil {
		if *c.SnapshotWindowDays < 1 || *c.SnapshotWindowDays > constants.MaxSnapshotWindowDay {
			return fmt.Errorf("snapshot window must be between 1 and %d days", constants.MaxSnapshotWindowDay)
		}
		settings.SnapshotWindowDays = *c.SnapshotWindowDays
		updated = true
	}
	if c.CacheDir != nil {
		settings.CacheDir = *c.CacheDir
		updated = true
	}
	if c.BackfillMaxDays != nil {
		if *c.BackfillMaxDays < 1 {
			return fmt.Errorf("backfill max must be at least 1 day")
		}
		settings.BackfillMaxDays = *c.BackfillMaxDays
		updated = true
	}

	if updated {
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Println("Settings updated successfully.")
	} else {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
	}

	return nil
}
