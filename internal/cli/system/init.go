package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/habitlink/internal/cli"
	"github.com/julianstephens/habitlink/internal/storage"
	"github.com/julianstephens/habitlink/internal/storage/postgres"
)

type InitCmd struct {
	Force bool   `help:"Force reset by deleting existing database before initialization."`
	From  string `help:"Database path or connection string to copy habits, links and completions from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if c.From != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absFrom, err := filepath.Abs(storage.ExpandPath(c.From))
			if err == nil && absFrom == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			ctx.PerformAutomaticBackup()
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized habitlink storage at: %s\n", ctx.Store.GetConfigPath())

	if c.From != "" {
		fmt.Printf("Copying data from: %s\n", c.From)
		if err := copyData(ctx.Store, c.From); err != nil {
			return fmt.Errorf("copy failed: %w", err)
		}
		fmt.Println("Copy completed successfully!")
	}

	return nil
}

func copyData(dst storage.Provider, from string) error {
	if postgres.IsConnString(from) {
		if err := postgres.ValidateConnString(from); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return err
		}
	}
	src := storage.New(from)
	if err := src.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer src.Close()

	ctx := context.Background()

	fmt.Println("  Copying settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := dst.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	fmt.Println("  Copying habits...")
	habits, err := src.GetAllHabits(ctx)
	if err != nil {
		return fmt.Errorf("failed to get habits from source: %w", err)
	}
	for _, habit := range habits {
		if err := dst.AddHabit(habit); err != nil {
			return fmt.Errorf("failed to add habit %s: %w", habit.ID, err)
		}
	}
	fmt.Printf("    Copied %d habits\n", len(habits))

	fmt.Println("  Copying links...")
	links, err := src.GetAllLinks()
	if err != nil {
		return fmt.Errorf("failed to get links from source: %w", err)
	}
	for _, link := range links {
		if err := dst.SaveLink(link); err != nil {
			return fmt.Errorf("failed to save link %s: %w", link.ID, err)
		}
	}
	fmt.Printf("    Copied %d links\n", len(links))

	fmt.Println("  Copying completions...")
	records, err := src.GetCompletionsInRange(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return fmt.Errorf("failed to get completions from source: %w", err)
	}
	if err := dst.SaveCompletions(ctx, records); err != nil {
		return fmt.Errorf("failed to save completions: %w", err)
	}
	fmt.Printf("    Copied %d completion records\n", len(records))

	return nil
}
