package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	toggle  key.Binding
	snooze  key.Binding
	remove  key.Binding
	yes     key.Binding
	no      key.Binding
	refresh key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		toggle:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "enable/disable")),
		snooze:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "snooze")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.toggle, k.snooze, k.remove},
		{k.refresh, k.quit},
	}
}
