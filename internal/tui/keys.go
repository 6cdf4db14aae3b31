package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the dashboard view.
type KeyMap struct {
	Start  key.Binding
	Pause  key.Binding
	Reset  key.Binding
	Step   key.Binding
	Speed1 key.Binding
	Speed2 key.Binding
	Speed4 key.Binding

	Dismiss key.Binding // Close the lost-person overlay.
	Wrap    key.Binding
	Up      key.Binding
	Down    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Step: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next step"),
	),
	Speed1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1/2/4", "speed"),
	),
	Speed2: key.NewBinding(
		key.WithKeys("2"),
	),
	Speed4: key.NewBinding(
		key.WithKeys("4"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close alert"),
	),
	Wrap: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "wrap log"),
	),
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "scroll down"),
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

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Pause, k.Reset, k.Step, k.Speed1, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Pause, k.Reset, k.Step, k.Speed1},
		{k.Dismiss, k.Wrap, k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
