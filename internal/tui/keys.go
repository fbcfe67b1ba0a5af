package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines key bindings used across the console.
type KeyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Quit     key.Binding
	Refresh  key.Binding

	// Signal browser
	CycleServer key.Binding
	ShowLogs    key.Binding
}

// DefaultKeyMap provides the default key bindings for the console.
var DefaultKeyMap = KeyMap{
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
	ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),

	CycleServer: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle server")),
	ShowLogs:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "show history")),
}
