package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	more    key.Binding
	fewer   key.Binding
	bias    key.Binding
	cap     key.Binding
	private key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y", "generate")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "back")),
		more:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more tracks")),
		fewer:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer tracks")),
		bias:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bias")),
		cap:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "per-artist cap")),
		private: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "public/private")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "start over")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.enter, k.back},
		{k.more, k.fewer, k.bias, k.cap, k.private},
		{k.yes, k.no, k.restart, k.quit},
	}
}
