package visibility

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	visibleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	hiddenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
)

// StatusLabel renders VISIBLE or HIDDEN in color.
func StatusLabel(res engine.VisibilityResult) string {
	if res.Visible {
		return visibleStyle.Render("VISIBLE")
	}
	return hiddenStyle.Render("HIDDEN")
}

func mark(ok bool) string {
	if ok {
		return passStyle.Render("✓")
	}
	return failStyle.Render("✗")
}

// RenderTrace writes the result headline followed by every condition and
// check in evaluation order.
func RenderTrace(w io.Writer, name string, res engine.VisibilityResult) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(name), StatusLabel(res))
	fmt.Fprintf(w, "  %s\n", res.Summary())
	fmt.Fprintf(w, "  %s\n", mutedStyle.Render("evaluated at "+res.EvaluatedAt.Format(constants.InstantFormat+" MST")))

	if res.OverrideActive && res.OverrideExpiresAt != nil {
		fmt.Fprintf(w, "  override until %s\n", res.OverrideExpiresAt.In(res.EvaluatedAt.Location()).Format(constants.TimeFormat))
	}

	if len(res.ConditionResults) == 0 {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render("no conditions"))
		return
	}

	for _, c := range res.ConditionResults {
		if c.Skipped {
			fmt.Fprintf(w, "  %s %s %s\n", mutedStyle.Render("-"), c.Label(), mutedStyle.Render("("+c.SkipReason+")"))
			continue
		}
		fmt.Fprintf(w, "  %s %s [%s]\n", mark(c.Passed), c.Label(), c.Logic)
		for _, d := range c.Diagnostics {
			fmt.Fprintf(w, "      %s\n", warningStyle.Render(d.Kind+": "+d.Message))
		}
		for _, cr := range c.CheckResults {
			fmt.Fprintf(w, "    %s %s\n", mark(cr.Passed), cr.Reason)
			for _, d := range cr.Diagnostics {
				fmt.Fprintf(w, "        %s\n", warningStyle.Render(d.Kind+": "+d.Message))
			}
		}
	}
}

// OneLine renders a result as a single list row.
func OneLine(name string, res engine.VisibilityResult) string {
	summary := res.Summary()
	if res.Visible {
		summary = strings.TrimPrefix(summary, "visible")
		summary = strings.TrimPrefix(summary, " ")
	} else {
		summary = strings.TrimPrefix(summary, "hidden")
		summary = strings.TrimPrefix(summary, ": ")
	}
	if summary == "" {
		return fmt.Sprintf("%s %s", StatusLabel(res), name)
	}
	return fmt.Sprintf("%s %s %s", StatusLabel(res), name, mutedStyle.Render(summary))
}
