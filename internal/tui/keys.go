package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Previous key.Binding
	Next     key.Binding
	Field    key.Binding
	Up       key.Binding
	Down     key.Binding
	Apply    key.Binding
	Reset    key.Binding
	More     key.Binding
	Sync     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Previous: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous 12 months")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next 12 months")),
		Field:    key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next picklist")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous value")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next value")),
		Apply:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply range")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset range")),
		More:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more rows")),
		Sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Previous, k.Next, k.Apply, k.Reset, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Previous, k.Next, k.More},
		{k.Field, k.Up, k.Down, k.Apply, k.Reset},
		{k.Sync, k.Help, k.Quit},
	}
}
