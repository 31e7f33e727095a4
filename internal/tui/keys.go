package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start key.Binding
	Next  key.Binding
	Prev  key.Binding
	End   key.Binding
	Sync  key.Binding
	Clear key.Binding
	Help  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Next:  key.NewBinding(key.WithKeys("n", " ", "right"), key.WithHelp("n/space", "next")),
	Prev:  key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p", "prev")),
	End:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end")),
	Sync:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "sync rings")),
	Clear: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear rings")),
	Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// ShortHelp is the footer shown by default.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Help, k.Quit}
}

// FullHelp is the footer shown after "?".
func (k keyMap) FullHelp() []key.Binding {
	return []key.Binding{k.Start, k.Next, k.Prev, k.End, k.Sync, k.Clear, k.Help, k.Quit}
}
