package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/tui"
)

// WatchCmd opens the live dashboard. Visibility is re-evaluated on a timer.
type WatchCmd struct {
	Minutes int `help:"Override length used by the o key." default:"30" short:"m"`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	eng, err := ctx.Engine()
	if err != nil {
		return err
	}
	if err := eng.Resolver().Overrides().ValidateMinutes(c.Minutes); err != nil {
		return err
	}

	model := tui.NewModel(ctx.Context(), ctx.Store, eng, c.Minutes)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
