package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"towerterm/pkg/liquidity"
	"towerterm/pkg/utils"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}
	if active := m.modals.Active(); active != nil {
		return active.View(m.width, m.height)
	}
	if m.showGraph {
		return m.viewGraph()
	}

	// Top Bar
	owner := "Wallet not connected"
	ownerStyle := warnStyle
	if m.cfg.Connected() {
		owner = fmt.Sprintf("cosmos %s • evm %s", shortAddress(m.cfg.Owner.Cosmos), shortAddress(m.cfg.Owner.EVM))
		ownerStyle = subtleStyle
	}
	spinnerView := ""
	if m.loading {
		spinnerView = m.spinner.View() + " "
	}
	lastUpd := "never"
	if !m.lastUpdate.IsZero() {
		lastUpd = m.lastUpdate.Format("15:04:05")
	}
	leftBlock := ownerStyle.Render(" " + owner)
	rightBlock := subtleStyle.Render(fmt.Sprintf("%sLast updated: %s ", spinnerView, lastUpd))
	gap := m.width - lipgloss.Width(leftBlock) - lipgloss.Width(rightBlock)
	if gap < 0 {
		gap = 0
	}
	topBar := lipgloss.JoinHorizontal(lipgloss.Top, leftBlock, strings.Repeat(" ", gap), rightBlock)

	// Pools table
	var rows []string
	rows = append(rows, tableHeaderStyle.Render(fmt.Sprintf("  %-18s %-13s %-6s %s", "POOL", "TYPE", "FEE", "YOUR BALANCES")))
	if len(m.pools) == 0 {
		rows = append(rows, subtleStyle.Render("No pools configured"))
	}
	for i, p := range m.pools {
		cursor := "  "
		if i == m.poolIdx {
			cursor = "> "
		}
		row := fmt.Sprintf("%s%-18s %-13s %-6s %s",
			cursor,
			utils.TruncateString(p.Name, 18),
			string(p.Type),
			liquidity.FeeLabel(p),
			m.poolHoldings(p),
		)
		if i == m.poolIdx {
			row = selectedRowStyle.Render(row)
		}
		rows = append(rows, row)
	}

	bridge := subtleStyle.Render("Bridge asset: none selected")
	if m.bridgeAsset != nil {
		bridge = fmt.Sprintf("Bridge asset: %s (%s)", m.bridgeAsset.Symbol, utils.TruncateMiddle(m.bridgeAsset.Denom, 24))
	}

	var failures []string
	names := make([]string, 0, len(m.failures))
	for name := range m.failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		failures = append(failures, errStyle.Render(fmt.Sprintf("%s: %s", name, utils.TruncateString(m.failures[name], 60))))
	}

	parts := []string{
		titleStyle.Render("TowerTerm - Liquidity"),
		"",
		strings.Join(rows, "\n"),
		"",
		bridge,
	}
	if m.deposits > 0 {
		parts = append(parts, infoStyle.Render(fmt.Sprintf("%d deposit(s) submitted this session", m.deposits)))
	}
	if len(failures) > 0 {
		parts = append(parts, "", strings.Join(failures, "\n"))
	}

	targetWidth := m.width - 4
	if targetWidth < 0 {
		targetWidth = 0
	}
	content := boxStyle.Width(targetWidth).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))

	// Footer
	line := helpLine(keys.AddLiq, keys.Bridge, keys.Refresh, keys.Graph, keys.Help, keys.Quit) + fmt.Sprintf(" • v%s", Version)
	var footer string
	if m.width > 0 {
		footer = subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line)
	} else {
		footer = subtleStyle.Render(line)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}

	h := m.height - 1
	if h < 0 {
		h = 0
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBar,
		lipgloss.Place(
			m.width,
			h,
			lipgloss.Center,
			lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
		),
	)
}

func (m model) viewGraph() string {
	targetBoxWidth := m.width - 4
	if targetBoxWidth < 0 {
		targetBoxWidth = 0
	}

	a, ok := m.graphAsset()
	if !ok {
		content := boxStyle.Render("No asset to graph.")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	header := titleStyle.Render(fmt.Sprintf("Balance History: %s", a.Symbol))

	var graph, stats string
	values := m.historyValues(a.Denom)
	if len(values) > 0 {
		low, high := values[0], values[0]
		for _, v := range values {
			if v < low {
				low = v
			}
			if v > high {
				high = v
			}
		}
		stats = subtleStyle.Render(fmt.Sprintf("Low: %s • Now: %s • High: %s",
			utils.FormatFloat(low, m.cfg.Global.TokenDecimals),
			utils.FormatFloat(values[len(values)-1], m.cfg.Global.TokenDecimals),
			utils.FormatFloat(high, m.cfg.Global.TokenDecimals),
		))

		graphWidth := targetBoxWidth - 14 // 4 for box borders/padding, ~10 for axis labels
		if graphWidth < 10 {
			graphWidth = 10
		}
		graphHeight := m.height - 14
		if graphHeight < 1 {
			graphHeight = 1
		}
		graph = asciigraph.Plot(values,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(fmt.Sprintf("%s balance per poll", a.Symbol)),
		)
	} else {
		graph = "Not enough data to draw graph."
	}

	content := boxStyle.Width(targetBoxWidth).Align(lipgloss.Center).Render(lipgloss.JoinVertical(lipgloss.Center, header, "\n", stats, "\n", graph))
	footer := subtleStyle.Render("g/q/esc: back • r: refresh")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"↑/↓: Select Pool",
		"a: Add Liquidity",
		"b: Select Bridge Asset",
		"r: Refresh Balances",
		"g: Balance Graph",
		"q/esc: Quit",
		"?: Toggle Help",
		"",
		"Select Asset",
		"  type: Search • tab: Network/Asset • ←/→: Network",
		"  ctrl+y: Copy Denom • enter: Select • esc: Close",
		"",
		"Add Liquidity",
		"  digits: Amount • tab: Next Field • m: Max",
		"  s: Double/Single Sided • ←/→: Single Asset",
		"  ctrl+s: Max Slippage • enter: Submit • esc: Close",
	}

	header := titleStyle.Render("Help")
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
