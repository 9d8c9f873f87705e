package tui

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"towerterm/pkg/utils"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func shortAddress(addr string) string {
	if addr == "" {
		return "-"
	}
	return utils.TruncateMiddle(addr, 16)
}
