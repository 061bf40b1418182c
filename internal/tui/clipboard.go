package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

type copyResultMsg struct {
	err error
}

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if text == "" {
			return copyResultMsg{err: fmt.Errorf("nothing to copy")}
		}
		return copyResultMsg{err: writeClipboard(text)}
	}
}
