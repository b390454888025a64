package playground

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	NextType   key.Binding
	PrevType   key.Binding
	Up         key.Binding
	Down       key.Binding
	Purge      key.Binding
	ClearInput key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	NextType:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next type")),
	PrevType:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev type")),
	Up:         key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "prev match")),
	Down:       key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next match")),
	Purge:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "toggle overlaps")),
	ClearInput: key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "clear")),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.NextType, k.Down, k.Purge, k.ClearInput, k.Quit}
}
