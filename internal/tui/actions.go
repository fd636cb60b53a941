package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

type statusMsg string

// writeClipboard is swapped out in tests; headless hosts have no clipboard.
var writeClipboard = clipboard.WriteAll

// copyLocation copies the selected finding's location, never its matched
// text, to the clipboard.
func (m Model) copyLocation() tea.Cmd {
	it, ok := m.selected()
	if !ok {
		return func() tea.Msg { return statusMsg("No finding selected") }
	}
	loc := location(it)
	if err := writeClipboard(loc); err != nil {
		return func() tea.Msg { return statusMsg(fmt.Sprintf("Clipboard error: %v", err)) }
	}
	return func() tea.Msg { return statusMsg(fmt.Sprintf("Copied: %s", loc)) }
}
