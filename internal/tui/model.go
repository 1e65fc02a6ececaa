// Package tui is the live visibility dashboard behind "routinely watch".
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/cli/visibility"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

// Item is one routine row together with its latest evaluation.
type Item struct {
	Routine models.Routine
	Result  engine.VisibilityResult
}

func (i Item) Title() string       { return visibility.StatusLabel(i.Result) + " " + i.Routine.Name }
func (i Item) Description() string { return i.Result.Summary() }
func (i Item) FilterValue() string { return i.Routine.Name }

type (
	tickMsg   time.Time
	statusMsg string
	errMsg    struct{ err error }
	loadedMsg struct {
		items []Item
		at    time.Time
	}
)

type Model struct {
	ctx             context.Context
	store           storage.Provider
	engine          *engine.Engine
	overrideMinutes int
	refresh         time.Duration

	keys    KeyMap
	help    help.Model
	list    list.Model
	detail  bool
	status  string
	err     error
	updated time.Time

	quitting bool
}

// NewModel builds the dashboard. The o key creates overrides of
// overrideMinutes.
func NewModel(ctx context.Context, store storage.Provider, eng *engine.Engine, overrideMinutes int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Routines"
	l.SetShowHelp(false)

	return Model{
		ctx:             ctx,
		store:           store,
		engine:          eng,
		overrideMinutes: overrideMinutes,
		refresh:         constants.WatchRefreshInterval,
		keys:            DefaultKeyMap(),
		help:            help.New(),
		list:            l,
	}
}

// Load evaluates every live routine at the engine's current instant.
func Load(ctx context.Context, store storage.Provider, eng *engine.Engine) ([]Item, error) {
	routines, err := store.ListRoutines(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get routines: %w", err)
	}
	ids := make([]string, len(routines))
	for i, r := range routines {
		ids[i] = r.ID
	}
	results, err := eng.Resolver().EvaluateMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate routines: %w", err)
	}

	items := make([]Item, len(routines))
	for i, r := range routines {
		items[i] = Item{Routine: r, Result: results[i]}
	}
	return items, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		items, err := Load(m.ctx, m.store, m.engine)
		if err != nil {
			return errMsg{err}
		}
		return loadedMsg{items: items, at: m.engine.Now()}
	}
}

func (m Model) createOverride(it Item) tea.Cmd {
	return func() tea.Msg {
		expires, err := m.engine.CreateOverride(m.ctx, it.Routine.ID, m.overrideMinutes)
		if err != nil {
			return errMsg{err}
		}
		logger.Info("Override created from dashboard", "routine", it.Routine.ID, "expires_at", expires)
		return statusMsg(fmt.Sprintf("%s is visible until %s",
			it.Routine.Name, expires.In(m.engine.Now().Location()).Format(constants.TimeFormat)))
	}
}

func (m Model) cancelOverride(it Item) tea.Cmd {
	return func() tea.Msg {
		removed, err := m.engine.CancelOverride(m.ctx, it.Routine.ID)
		if err != nil {
			return errMsg{err}
		}
		if !removed {
			return statusMsg(it.Routine.Name + " has no override")
		}
		return statusMsg("Cancelled override for " + it.Routine.Name)
	}
}

func (m Model) selected() (Item, bool) {
	it, ok := m.list.SelectedItem().(Item)
	return it, ok
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case loadedMsg:
		m.err = nil
		m.updated = msg.at
		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = it
		}
		return m, m.list.SetItems(items)

	case statusMsg:
		m.status = string(msg)
		m.err = nil
		return m, m.load()

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		case key.Matches(msg, m.keys.Detail):
			m.detail = !m.detail
			return m, nil
		case key.Matches(msg, m.keys.Override):
			if it, ok := m.selected(); ok {
				return m, m.createOverride(it)
			}
			return m, nil
		case key.Matches(msg, m.keys.Cancel):
			if it, ok := m.selected(); ok {
				return m, m.cancelOverride(it)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := titleStyle.Render(constants.AppName + " watch")
	if !m.updated.IsZero() {
		header += mutedStyle.Render("updated " + m.updated.Format(constants.TimeFormat))
	}

	body := m.list.View()
	if m.detail {
		if it, ok := m.selected(); ok {
			var b strings.Builder
			visibility.RenderTrace(&b, it.Routine.Name, it.Result)
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, detailStyle.Render(strings.TrimRight(b.String(), "\n")))
		}
	}

	var footer string
	switch {
	case m.err != nil:
		footer = dangerStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		footer = statusStyle.Render(m.status)
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		footer,
		m.help.View(m.keys),
	))
}
