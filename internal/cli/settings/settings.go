package settings

import (
	"fmt"
	"strings"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	Timezone           *string `help:"IANA timezone used for time and day checks (or Local)."`
	ResetPeriod        *string `help:"Period after which counts and percentages reset." enum:"daily,weekly,monthly" name:"reset-period"`
	WeekStart          *string `help:"First day of a weekly period (e.g. mon or 1)." name:"week-start"`
	MaxOverrideMinutes *int    `help:"Longest allowed visibility override in minutes." name:"max-override-minutes"`
}

func (c *SettingsCmd) Validate() error {
	if c.Timezone != nil && !utils.ValidateTimezone(*c.Timezone) {
		return fmt.Errorf("invalid timezone: %s", *c.Timezone)
	}
	if c.MaxOverrideMinutes != nil {
		if *c.MaxOverrideMinutes < constants.MinOverrideMinutes {
			return fmt.Errorf("max override minutes must be at least %d", constants.MinOverrideMinutes)
		}
		if *c.MaxOverrideMinutes > constants.OverrideCeilingMins {
			return fmt.Errorf("max override minutes must be at most %d", constants.OverrideCeilingMins)
		}
	}
	return nil
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings(ctx.Context())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)

	if c.List {
		ctx.Println("Current Settings:")
		ctx.Printf("  Timezone:             %s\n", settings.Timezone)
		ctx.Printf("  Reset Period:         %s\n", settings.ResetPeriod)
		ctx.Printf("  Week Start:           %s\n", models.FormatDays([]int{settings.WeekStart}))
		ctx.Printf("  Max Override Minutes: %d\n", settings.MaxOverrideMinutes)
		return nil
	}

	updated := false
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.ResetPeriod != nil {
		settings.ResetPeriod = models.ResetPeriod(strings.ToLower(*c.ResetPeriod))
		updated = true
	}
	if c.WeekStart != nil {
		days, err := utils.ParseWeekdays(*c.WeekStart)
		if err != nil {
			return err
		}
		if len(days) != 1 {
			return fmt.Errorf("week start must be a single day")
		}
		settings.WeekStart = days[0]
		updated = true
	}
	if c.MaxOverrideMinutes != nil {
		settings.MaxOverrideMinutes = *c.MaxOverrideMinutes
		updated = true
	}

	if updated {
		if err := ctx.Store.SaveSettings(ctx.Context(), settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		ctx.Println("Settings updated successfully.")
	} else {
		ctx.Println("No changes specified. Use --list to view settings or flags to update them.")
	}

	return nil
}
