package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/keyring"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/storage/postgres"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
	"github.com/julianstephens/routinely/internal/utils"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to migrate data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	// If force flag is provided, delete existing database
	if c.Force && !keyring.IsPostgres(ctx.Store.GetConfigPath()) {
		dbPath := ctx.Store.GetConfigPath()
		// Don't delete if it's the source (user error protection)
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			source, _ := utils.ExpandHome(c.Source)
			absSource, err := filepath.Abs(source)
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			// Close first to release the file lock
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			ctx.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized routinely storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		ctx.Printf("Migrating data from: %s\n", c.Source)
		source, err := openSource(c.Source)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer source.Close()
		if err := migrateData(ctx, source); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}

	return nil
}

func openSource(sourcePath string) (storage.Provider, error) {
	var source storage.Provider
	if keyring.IsPostgres(sourcePath) {
		if valid, err := postgres.ValidateConnString(sourcePath); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return nil, err
		}
		source = postgres.New(sourcePath)
	} else {
		path, err := utils.ExpandHome(sourcePath)
		if err != nil {
			return nil, err
		}
		source = sqlite.NewStore(path)
	}

	if err := source.Load(); err != nil {
		return nil, fmt.Errorf("failed to load source database: %w", err)
	}
	return source, nil
}

// migrateData copies every authored row from source into the context store.
// Overrides are short-lived and are not copied.
func migrateData(ctx *cli.Context, source storage.Provider) error {
	bg := ctx.Context()

	ctx.Println("  Migrating settings...")
	settings, err := source.GetSettings(bg)
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := ctx.Store.SaveSettings(bg, settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}

	ctx.Println("  Migrating routines...")
	routines, err := source.ListRoutines(bg, true)
	if err != nil {
		return fmt.Errorf("failed to get routines from source: %w", err)
	}
	for _, r := range routines {
		if err := ctx.Store.AddRoutine(bg, r); err != nil {
			return fmt.Errorf("failed to add routine %s: %w", r.ID, err)
		}
	}
	ctx.Printf("    Migrated %d routines\n", len(routines))

	ctx.Println("  Migrating tasks...")
	tasks, err := source.ListTasks(bg, "")
	if err != nil {
		return fmt.Errorf("failed to get tasks from source: %w", err)
	}
	completions := 0
	for _, task := range tasks {
		if err := ctx.Store.AddTask(bg, task); err != nil {
			return fmt.Errorf("failed to add task %s: %w", task.ID, err)
		}
		days, err := source.ListCompletionDays(bg, task.ID)
		if err != nil {
			return fmt.Errorf("failed to get completions of task %s: %w", task.ID, err)
		}
		for _, day := range days {
			comp := models.TaskCompletion{ID: cli.NewID(), TaskID: task.ID, Day: day}
			if err := ctx.Store.AddCompletion(bg, comp); err != nil {
				return fmt.Errorf("failed to add completion of task %s: %w", task.ID, err)
			}
			completions++
		}
	}
	ctx.Printf("    Migrated %d tasks and %d completions\n", len(tasks), completions)

	ctx.Println("  Migrating goals...")
	goals, err := source.ListGoals(bg)
	if err != nil {
		return fmt.Errorf("failed to get goals from source: %w", err)
	}
	for _, g := range goals {
		if err := ctx.Store.AddGoal(bg, g); err != nil {
			return fmt.Errorf("failed to add goal %s: %w", g.ID, err)
		}
	}
	ctx.Printf("    Migrated %d goals\n", len(goals))

	ctx.Println("  Migrating conditions...")
	conds, err := source.ListAllConditions(bg)
	if err != nil {
		return fmt.Errorf("failed to get conditions from source: %w", err)
	}
	for _, cond := range conds {
		if err := ctx.Store.SaveCondition(bg, cond); err != nil {
			return fmt.Errorf("failed to save condition %s: %w", cond.ID, err)
		}
	}
	ctx.Printf("    Migrated %d conditions\n", len(conds))

	return nil
}
