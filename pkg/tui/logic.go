package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"towerterm/pkg/assets"
	"towerterm/pkg/config"
	"towerterm/pkg/models"
	"towerterm/pkg/watcher"
)

// pickerNetworks builds one picker tab entry per configured source.
func pickerNetworks(cfg config.Config) []PickerNetwork {
	networks := make([]PickerNetwork, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		n := PickerNetwork{Name: s.Name}
		for _, a := range s.Assets {
			n.Assets = append(n.Assets, models.Asset{
				Symbol:   a.Symbol,
				Denom:    a.Denom,
				Decimals: a.Decimals,
				LogoURI:  a.LogoURI,
			})
		}
		networks = append(networks, n)
	}
	return networks
}

func (m model) activePool() (models.Pool, bool) {
	if m.poolIdx < 0 || m.poolIdx >= len(m.pools) {
		return models.Pool{}, false
	}
	return m.pools[m.poolIdx], true
}

// graphAsset is the asset whose balance history the graph shows: the chosen
// bridge asset, else the first asset of the highlighted pool.
func (m model) graphAsset() (models.Asset, bool) {
	if m.bridgeAsset != nil {
		return *m.bridgeAsset, true
	}
	if p, ok := m.activePool(); ok && len(p.Assets) > 0 {
		return p.Assets[0], true
	}
	return models.Asset{}, false
}

// poolHoldings renders the owner's balance of every asset in p.
func (m model) poolHoldings(p models.Pool) string {
	parts := make([]string, 0, len(p.Assets))
	for _, a := range p.Assets {
		parts = append(parts, fmt.Sprintf("%s %s", assets.FormatAmount(a, m.balances, m.cfg.Global.TokenDecimals), a.Symbol))
	}
	return strings.Join(parts, " / ")
}

func (m model) historyValues(denom string) []float64 {
	if m.watcher == nil {
		return nil
	}
	points := m.watcher.History(denom)
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

func (m *model) openAddLiquidity() tea.Cmd {
	pool, ok := m.activePool()
	if !ok {
		m.statusMessage = "No pool configured"
		return clearStatusAfter(statusTTL)
	}
	m.modals.Show(NewAddLiquidityModel(m.modals, AddLiquidityOptions{
		Pool:            pool,
		Balances:        m.balances,
		Connected:       m.cfg.Connected(),
		DefaultSlippage: m.cfg.Global.DefaultSlippage,
		Places:          m.cfg.Global.TokenDecimals,
		Gate:            m.gate,
		OnSuccess: func() tea.Cmd {
			return func() tea.Msg { return depositDoneMsg{pool: pool} }
		},
		OnSlippage: m.saveSlippageCmd,
	}))
	return nil
}

// saveSlippageCmd writes value as the configured default slippage.
func (m model) saveSlippageCmd(value string) tea.Cmd {
	if m.cfgPath == "" {
		return nil
	}
	cfg, path := m.cfg, m.cfgPath
	return func() tea.Msg {
		cfg.Global.DefaultSlippage = value
		return slippageSavedMsg{value: value, err: config.SaveConfig(cfg, path)}
	}
}

func (m *model) openPicker() tea.Cmd {
	m.modals.Show(NewAssetPickerModel(m.modals, PickerOptions{
		Networks: m.networks,
		Balances: m.balances,
		Places:   m.cfg.Global.TokenDecimals,
		OnSelect: func(a models.Asset) tea.Cmd {
			return func() tea.Msg { return bridgeSelectedMsg{asset: a} }
		},
		OnClose: func() tea.Cmd {
			return func() tea.Msg { return pickerClosedMsg{} }
		},
	}))
	return nil
}

func (m model) refreshCmd() tea.Cmd {
	w := m.watcher
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		w.Refresh(context.Background())
		return nil
	}
}

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}
