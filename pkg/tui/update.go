package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"towerterm/pkg/liquidity"
	"towerterm/pkg/models"
	"towerterm/pkg/watcher"
)

const statusTTL = 3 * time.Second

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case watcher.Event:
		// Re-subscribe to next event
		cmds = append(cmds, listenForWatcher(m.sub))
		if data, ok := msg.Data.(models.BalanceData); ok {
			switch msg.Type {
			case watcher.EventBalancesUpdated:
				delete(m.failures, data.Source)
			case watcher.EventFetchFailed:
				if data.Err != nil {
					m.failures[data.Source] = data.Err.Error()
				}
			}
		}
		m.loading = false
		m.lastUpdate = time.Now()
		if m.watcher != nil {
			m.balances = m.watcher.Balances()
		}
		if r, ok := m.modals.Active().(balanceReceiver); ok {
			r.SetBalances(m.balances)
		}
		return m, tea.Batch(cmds...)

	case depositDoneMsg:
		m.deposits++
		m.statusMessage = fmt.Sprintf("Deposit into %s submitted", msg.pool.Name)
		m.loading = true
		return m, tea.Batch(m.refreshCmd(), clearStatusAfter(statusTTL))

	case bridgeSelectedMsg:
		a := msg.asset
		m.bridgeAsset = &a
		m.statusMessage = fmt.Sprintf("Bridge asset set to %s", a.Symbol)
		return m, clearStatusAfter(statusTTL)

	case pickerClosedMsg:
		m.statusMessage = "Asset selection cancelled"
		return m, clearStatusAfter(statusTTL)

	case slippageSavedMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Failed to save config: %v", msg.err)
		} else {
			m.cfg.Global.DefaultSlippage = msg.value
			m.statusMessage = fmt.Sprintf("Max slippage %s saved", liquidity.SlippageLabel(msg.value))
		}
		return m, clearStatusAfter(statusTTL)

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			return m, tea.Quit
		}
		if active := m.modals.Active(); active != nil {
			return m, active.Update(msg)
		}
		return m.handleKey(msg)
	}

	// spinner ticks and submit results belong to the active modal
	if active := m.modals.Active(); active != nil {
		cmds = append(cmds, active.Update(msg))
	}
	if _, ok := msg.(spinner.TickMsg); ok && m.loading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, keys.Help, keys.Escape, keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit), key.Matches(msg, keys.Escape):
		if m.showGraph {
			m.showGraph = false
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = true

	case key.Matches(msg, keys.Up):
		if m.poolIdx > 0 {
			m.poolIdx--
		}

	case key.Matches(msg, keys.Down):
		if m.poolIdx < len(m.pools)-1 {
			m.poolIdx++
		}

	case key.Matches(msg, keys.AddLiq):
		cmd := m.openAddLiquidity()
		return m, cmd

	case key.Matches(msg, keys.Bridge):
		cmd := m.openPicker()
		return m, cmd

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.statusMessage = "Refreshing balances..."
		return m, tea.Batch(m.refreshCmd(), m.spinner.Tick, clearStatusAfter(statusTTL))

	case key.Matches(msg, keys.Graph):
		m.showGraph = !m.showGraph
	}
	return m, nil
}
