package system

import (
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/engine"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/validation"
)

// tableChecker is implemented by the SQLite store.
type tableChecker interface {
	MissingTables() ([]string, error)
}

type DoctorCmd struct{}

type diagnostic struct {
	name     string
	needsDB  bool
	run      func(ctx *cli.Context) error
	warnOnly bool
}

func diagnostics() []diagnostic {
	return []diagnostic{
		{name: "Schema version", needsDB: true, run: checkSchemaVersion},
		{name: "Migrations complete", needsDB: true, run: checkMigrationsComplete},
		{name: "Tables present", needsDB: true, run: checkTables},
		{name: "Settings", needsDB: true, run: checkSettings},
		{name: "Condition lint", needsDB: true, run: checkConditions},
		{name: "Expired overrides", needsDB: true, run: checkExpiredOverrides, warnOnly: true},
		{name: "Clock/timezone", needsDB: true, run: checkClockTimezone},
	}
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := false

	if err := checkDBReachable(ctx); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
		dbReachable = true
	}

	for _, d := range diagnostics() {
		if d.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", d.name)
			continue
		}
		err := d.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", d.name)
		case d.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", d.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", d.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	ctx.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if err := ctx.Store.Ping(ctx.Context()); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return nil
	}
	runner, err := m.MigrationRunner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion()
}

func checkMigrationsComplete(ctx *cli.Context) error {
	m, ok := ctx.Store.(migrator)
	if !ok {
		return nil
	}
	runner, err := m.MigrationRunner()
	if err != nil {
		return err
	}

	currentVersion, err := runner.GetCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}
	latestVersion, err := runner.GetLatestVersion()
	if err != nil {
		return fmt.Errorf("failed to get latest schema version: %w", err)
	}
	if currentVersion < latestVersion {
		return fmt.Errorf("database is at version %d but latest is %d - run 'routinely migrate'", currentVersion, latestVersion)
	}
	return nil
}

func checkTables(ctx *cli.Context) error {
	tc, ok := ctx.Store.(tableChecker)
	if !ok {
		return nil
	}
	missing, err := tc.MissingTables()
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing tables: %v", missing)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if _, err := engine.ConfigFromSettings(settings); err != nil {
		return err
	}
	if !settings.ResetPeriod.Valid() {
		return fmt.Errorf("unknown reset period %q", settings.ResetPeriod)
	}
	if settings.WeekStart < 0 || settings.WeekStart > 6 {
		return fmt.Errorf("week start %d is not a weekday (0-6)", settings.WeekStart)
	}
	return nil
}

// checkConditions lints the conditions of live routines, including dangling
// targets. Empty conditions are legal and not reported.
func checkConditions(ctx *cli.Context) error {
	all, err := ctx.Store.ListAllConditions(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get conditions: %w", err)
	}
	refs, err := ctx.Refs()
	if err != nil {
		return err
	}

	var conds []models.Condition
	for _, c := range all {
		if refs.Routines[c.RoutineID] {
			conds = append(conds, c)
		}
	}
	result := validation.New().ValidateConditions(conds, refs)
	blocking := result.Without(validation.ConflictNoChecks)
	validation.SortConflicts(blocking.Conflicts)
	return blocking.Err()
}

func checkExpiredOverrides(ctx *cli.Context) error {
	now, err := ctx.Now()
	if err != nil {
		return err
	}
	routines, err := ctx.Store.ListRoutines(ctx.Context(), false)
	if err != nil {
		return err
	}
	var expired []models.Routine
	for _, r := range routines {
		o, err := ctx.Store.GetOverride(ctx.Context(), r.ID)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !o.ActiveAt(now) {
			expired = append(expired, r)
		}
	}
	if len(expired) > 0 {
		return fmt.Errorf("%d routines have expired overrides still stored (harmless; cancel them to tidy up)", len(expired))
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now, err := ctx.Now()
	if err != nil {
		return fmt.Errorf("failed to resolve configured timezone: %w", err)
	}
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}
