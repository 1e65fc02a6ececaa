package system

import (
	"fmt"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/migration"
)

// migrator is implemented by both storage backends.
type migrator interface {
	MigrationRunner() (*migration.Runner, error)
}

type MigrateCmd struct {
	Status bool `help:"Show the current and latest schema versions without applying anything."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}
	runner, err := m.MigrationRunner()
	if err != nil {
		return err
	}

	if c.Status {
		current, err := runner.GetCurrentVersion()
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		latest, err := runner.GetLatestVersion()
		if err != nil {
			return err
		}
		pending, err := runner.Pending()
		if err != nil {
			return err
		}
		ctx.Printf("Schema version: %d (latest %d, %d pending)\n", current, latest, len(pending))
		for _, p := range pending {
			ctx.Printf("  pending: %s\n", p.Name)
		}
		return nil
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}

	return nil
}
