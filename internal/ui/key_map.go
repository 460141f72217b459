package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	search key.Binding
	next   key.Binding
	up     key.Binding
	down   key.Binding
	add    key.Binding
	remove key.Binding
	rename key.Binding
	save   key.Binding
	submit key.Binding
	back   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		add:    key.NewBinding(key.WithKeys("enter", "a"), key.WithHelp("enter/a", "add")),
		remove: key.NewBinding(key.WithKeys("d", "x", "delete"), key.WithHelp("d", "remove")),
		rename: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save to Spotify")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.search, k.next, k.save, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.next},
		{k.search, k.add, k.remove},
		{k.rename, k.save, k.quit},
	}
}
