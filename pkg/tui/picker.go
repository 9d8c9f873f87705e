package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"towerterm/pkg/assets"
	"towerterm/pkg/modal"
	"towerterm/pkg/models"
	"towerterm/pkg/utils"
)

const pickerPageSize = 8

// PickerNetwork is one entry of the picker's network tab.
type PickerNetwork struct {
	Name   string
	Assets []models.Asset
}

// PickerOptions configures an AssetPickerModel.
type PickerOptions struct {
	Networks []PickerNetwork
	Balances models.Balances
	Places   int // decimals shown for balances
	OnSelect func(models.Asset) tea.Cmd
	OnClose  func() tea.Cmd
}

type pickerFocus int

const (
	focusNetwork pickerFocus = iota
	focusAsset
)

// AssetPickerModel is the Select Asset dialog: a searchable list of the
// selected network's assets ranked by balance.
type AssetPickerModel struct {
	ctrl    modal.Controller
	opts    PickerOptions
	network int
	focus   pickerFocus
	search  textinput.Model
	filter  *assets.FilterState
	cursor  int
	offset  int
	status  string
}

func NewAssetPickerModel(ctrl modal.Controller, opts PickerOptions) *AssetPickerModel {
	ti := textinput.New()
	ti.Placeholder = "Search by Name, Symbol or Address"
	ti.Width = 40
	ti.Focus()

	m := &AssetPickerModel{
		ctrl:   ctrl,
		opts:   opts,
		focus:  focusNetwork,
		search: ti,
	}
	m.filter = assets.NewFilterState(m.networkAssets(), opts.Balances)
	return m
}

func (m *AssetPickerModel) Title() string { return "Select Asset" }

// Results are the assets currently listed, best balance first.
func (m *AssetPickerModel) Results() []models.Asset {
	return m.filter.Results()
}

// Highlighted returns the asset under the cursor.
func (m *AssetPickerModel) Highlighted() (models.Asset, bool) {
	res := m.filter.Results()
	if m.cursor < 0 || m.cursor >= len(res) {
		return models.Asset{}, false
	}
	return res[m.cursor], true
}

// SetBalances re-ranks the list against a fresh snapshot.
func (m *AssetPickerModel) SetBalances(b models.Balances) {
	m.opts.Balances = b
	m.filter.SetBalances(b)
	m.clampCursor()
}

func (m *AssetPickerModel) networkAssets() []models.Asset {
	if len(m.opts.Networks) == 0 {
		return nil
	}
	return m.opts.Networks[m.network].Assets
}

func (m *AssetPickerModel) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(keyMsg, keys.Escape):
		m.ctrl.Hide()
		if m.opts.OnClose != nil {
			return m.opts.OnClose()
		}
		return nil

	case key.Matches(keyMsg, keys.Enter):
		a, ok := m.Highlighted()
		if !ok {
			return nil
		}
		m.ctrl.Hide()
		if m.opts.OnSelect != nil {
			return m.opts.OnSelect(a)
		}
		return nil

	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampCursor()
		return nil

	case key.Matches(keyMsg, keys.Down):
		m.cursor++
		m.clampCursor()
		return nil

	case key.Matches(keyMsg, keys.Tab), key.Matches(keyMsg, keys.ShiftTab):
		if m.focus == focusNetwork {
			m.focus = focusAsset
		} else {
			m.focus = focusNetwork
		}
		return nil

	case m.focus == focusNetwork && (key.Matches(keyMsg, keys.Left) || key.Matches(keyMsg, keys.Right)):
		n := len(m.opts.Networks)
		if n < 2 {
			return nil
		}
		if key.Matches(keyMsg, keys.Right) {
			m.network = (m.network + 1) % n
		} else {
			m.network = (m.network - 1 + n) % n
		}
		query := m.filter.Query()
		m.filter = assets.NewFilterState(m.networkAssets(), m.opts.Balances)
		m.filter.SetQuery(query)
		m.cursor, m.offset = 0, 0
		return nil

	case key.Matches(keyMsg, keys.Copy):
		a, ok := m.Highlighted()
		if !ok {
			return nil
		}
		if err := writeClipboard(a.Denom); err != nil {
			m.status = "Failed to copy to clipboard"
		} else {
			m.status = fmt.Sprintf("%s denom copied", a.Symbol)
		}
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.filter.Query() {
		m.filter.SetQuery(q)
		m.cursor, m.offset = 0, 0
		m.status = ""
	}
	return cmd
}

func (m *AssetPickerModel) clampCursor() {
	n := len(m.filter.Results())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+pickerPageSize {
		m.offset = m.cursor - pickerPageSize + 1
	}
}

func (m *AssetPickerModel) View(width, height int) string {
	networkName := "-"
	if len(m.opts.Networks) > 0 {
		networkName = m.opts.Networks[m.network].Name
	}
	assetName := "-"
	if a, ok := m.Highlighted(); ok {
		assetName = a.Symbol
	}

	netTab, assetTab := activeTabStyle, tabStyle
	if m.focus == focusAsset {
		netTab, assetTab = tabStyle, activeTabStyle
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, subtleStyle.Render("Network"), netTab.Render(networkName)),
		"   ",
		lipgloss.JoinVertical(lipgloss.Left, subtleStyle.Render("Asset"), assetTab.Render(assetName)),
	)

	results := m.filter.Results()
	var rows []string
	if len(results) == 0 {
		rows = append(rows, subtleStyle.Render("  No assets match"))
	}
	end := m.offset + pickerPageSize
	if end > len(results) {
		end = len(results)
	}
	for i := m.offset; i < end; i++ {
		a := results[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		row := fmt.Sprintf("%s%-8s %-20s %14s %4s",
			cursor,
			utils.TruncateString(a.Symbol, 8),
			utils.TruncateMiddle(a.Denom, 20),
			assets.FormatAmount(a, m.opts.Balances, m.opts.Places),
			"$0",
		)
		if i == m.cursor {
			row = selectedRowStyle.Render(row)
		}
		rows = append(rows, row)
	}
	if len(results) > pickerPageSize {
		rows = append(rows, subtleStyle.Render(fmt.Sprintf("  %d-%d of %d", m.offset+1, end, len(results))))
	}

	footer := helpLine(keys.Enter, keys.Escape, keys.Tab, keys.Copy)
	parts := []string{
		titleStyle.Render(m.Title()),
		"",
		tabs,
		"",
		m.search.View(),
		"",
		strings.Join(rows, "\n"),
	}
	if m.status != "" {
		parts = append(parts, "", infoStyle.Render(m.status))
	}
	parts = append(parts, "", subtleStyle.Render(footer))

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
