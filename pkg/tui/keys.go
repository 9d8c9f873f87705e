package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	ShiftTab  key.Binding
	Enter     key.Binding
	Escape    key.Binding
	Copy      key.Binding
	Side      key.Binding
	Slippage  key.Binding
	Max       key.Binding
	AddLiq    key.Binding
	Bridge    key.Binding
	Refresh   key.Binding
	Graph     key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
	Left:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev")),
	Right:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	ShiftTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "prev field")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Copy:      key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy denom")),
	Side:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "switch side")),
	Slippage:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "max slippage")),
	Max:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "max")),
	AddLiq:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add liquidity")),
	Bridge:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bridge asset")),
	Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Graph:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "balance graph")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func helpLine(bindings ...key.Binding) string {
	s := ""
	for i, b := range bindings {
		if i > 0 {
			s += " • "
		}
		h := b.Help()
		s += h.Key + ": " + h.Desc
	}
	return s
}
