package tui

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the dashboard key bindings. It implements help.KeyMap.
type keyMap struct {
	Up            key.Binding
	Down          key.Binding
	Left          key.Binding
	Right         key.Binding
	ClearPointer  key.Binding
	NextTimeframe key.Binding
	PrevTimeframe key.Binding
	ToggleList    key.Binding
	Refresh       key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "pointer left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "pointer right"),
		),
		ClearPointer: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "hide pointer"),
		),
		NextTimeframe: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "next timeframe"),
		),
		PrevTimeframe: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "prev timeframe"),
		),
		ToggleList: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "popular/member"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the one line help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTimeframe, k.ToggleList, k.Left, k.Right, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Left, k.Right, k.ClearPointer},
		{k.NextTimeframe, k.PrevTimeframe, k.ToggleList},
		{k.Refresh, k.Help, k.Quit},
	}
}

// cycle returns the entry of names dir steps away from current, wrapping at
// both ends. An unknown current starts from the first entry.
func cycle(names []string, current string, dir int) string {
	if len(names) == 0 {
		return current
	}

	i := slices.Index(names, current)
	if i < 0 {
		return names[0]
	}

	n := len(names)
	return names[((i+dir)%n+n)%n]
}
