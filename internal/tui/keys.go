package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard key bindings with built-in help text.
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Escape key.Binding

	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	NextSkill key.Binding
	PrevSkill key.Binding

	ToggleView   key.Binding
	CycleBoss    key.Binding
	ToggleSingle key.Binding
	ToggleChart  key.Binding

	Reset      key.Binding
	ExportJSON key.Binding
	ExportCSV  key.Binding
	Copy       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		NextSkill: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next skill"),
		),
		PrevSkill: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab/←", "prev skill"),
		),
		ToggleView: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "cards/table"),
		),
		CycleBoss: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "boss mode"),
		),
		ToggleSingle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "single target"),
		),
		ToggleChart: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "dps chart"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		ExportJSON: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "save json"),
		),
		ExportCSV: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "save csv"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy summary"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.ToggleView, k.CycleBoss, k.ToggleSingle, k.Reset, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Escape, k.NextSkill, k.PrevSkill},
		{k.ToggleView, k.CycleBoss, k.ToggleSingle, k.ToggleChart},
		{k.Reset, k.ExportJSON, k.ExportCSV, k.Copy},
		{k.Help, k.Quit},
	}
}
