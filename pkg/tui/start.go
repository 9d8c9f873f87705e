package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the TUI until the user quits.
func Start(opts Options) error {
	Version = opts.Version
	p := tea.NewProgram(initialModel(opts), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
