package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/governable/piiscan/internal/engine"
)

// Run opens the finding browser over res and blocks until the user quits.
func Run(res engine.Result, source Source) error {
	m := NewModel(res, source)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
