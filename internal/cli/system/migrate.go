package system

import (
	"fmt"

	"github.com/julianstephens/habitlink/internal/cli"
)

type MigrateCmd struct {
	To int `help:"Stop at this schema version instead of the latest." default:"0"`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if _, pending, err := ctx.Store.SchemaStatus(); err == nil && pending > 0 {
		ctx.PerformAutomaticBackup()
	}

	count, err := ctx.Store.Migrate(c.To, func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}

	return nil
}
