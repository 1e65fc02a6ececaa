package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Detail   key.Binding
	Refresh  key.Binding
	Override key.Binding
	Cancel   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "toggle trace"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Override: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "force visible"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel override"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Detail, k.Override, k.Cancel, k.Quit, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Detail, k.Refresh},
		{k.Override, k.Cancel},
		{k.Help, k.Quit},
	}
}
