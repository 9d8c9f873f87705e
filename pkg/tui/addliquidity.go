package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"towerterm/pkg/liquidity"
	"towerterm/pkg/modal"
	"towerterm/pkg/models"
	"towerterm/pkg/utils"
)

// AddLiquidityOptions configures an AddLiquidityModel.
type AddLiquidityOptions struct {
	Pool            models.Pool
	Balances        models.Balances
	Connected       bool
	DefaultSlippage string
	Places          int
	Gate            *liquidity.Gate
	OnSuccess       func() tea.Cmd
	OnConnect       func() tea.Cmd
	// OnSlippage runs when the popover closes on a new max slippage.
	OnSlippage      func(string) tea.Cmd
}

type submitResultMsg struct {
	form *AddLiquidityModel
	err  error
}

// AddLiquidityModel is the Add Liquidity dialog.
type AddLiquidityModel struct {
	ctrl   modal.Controller
	opts   AddLiquidityOptions
	form   *liquidity.Form
	inputs []textinput.Model // one per pool asset, same order
	focus  int               // index into form.ActiveAssets()

	slippage      string
	slippageOpen  bool
	slippageInput textinput.Model
	slippageErr   string
	slippagePrev  string

	submitting bool
	cancel     context.CancelFunc
	spinner    spinner.Model
	status     string
}

func NewAddLiquidityModel(ctrl modal.Controller, opts AddLiquidityOptions) *AddLiquidityModel {
	if opts.Gate == nil {
		opts.Gate = liquidity.NewGate(liquidity.LogSubmitter{})
	}
	slippage := opts.DefaultSlippage
	if slippage == "" {
		slippage = liquidity.DefaultSlippage
	}

	inputs := make([]textinput.Model, len(opts.Pool.Assets))
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = "0"
		inputs[i].Width = 20
	}

	si := textinput.New()
	si.Placeholder = "custom %"
	si.Width = 8

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := &AddLiquidityModel{
		ctrl:          ctrl,
		opts:          opts,
		form:          liquidity.NewForm(opts.Pool, opts.Balances),
		inputs:        inputs,
		slippage:      slippage,
		slippageInput: si,
		spinner:       s,
	}
	m.syncFocus()
	return m
}

func (m *AddLiquidityModel) Title() string { return "Add Liquidity" }

// Form exposes the underlying deposit form.
func (m *AddLiquidityModel) Form() *liquidity.Form { return m.form }

func (m *AddLiquidityModel) Slippage() string { return m.slippage }

func (m *AddLiquidityModel) Submitting() bool { return m.submitting }

// SetBalances revalidates the form against a fresh snapshot.
func (m *AddLiquidityModel) SetBalances(b models.Balances) {
	m.opts.Balances = b
	m.form.SetBalances(b)
}

// Decision is the submit button state, including the disconnected case.
func (m *AddLiquidityModel) Decision() models.FormSubmitDecision {
	if !m.opts.Connected {
		return models.FormSubmitDecision{Disabled: false, Label: liquidity.LabelConnectWallet}
	}
	return m.form.Decision()
}

func (m *AddLiquidityModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case submitResultMsg:
		if msg.form != m {
			return nil
		}
		return m.handleResult(msg.err)

	case spinner.TickMsg:
		if !m.submitting {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Escape) && !m.slippageOpen {
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			m.ctrl.Hide()
			return nil
		}
		if m.submitting {
			return nil
		}
		if m.slippageOpen {
			return m.updateSlippage(msg)
		}
		return m.updateForm(msg)
	}
	return nil
}

func (m *AddLiquidityModel) updateForm(msg tea.KeyMsg) tea.Cmd {
	active := m.form.ActiveAssets()

	switch {
	case key.Matches(msg, keys.Slippage):
		m.slippageOpen = true
		m.slippagePrev = m.slippage
		m.slippageErr = ""
		m.slippageInput.SetValue("")
		m.slippageInput.Focus()
		return textinput.Blink

	case key.Matches(msg, keys.Side):
		if !m.form.CanSwitchSide() {
			return nil
		}
		next := models.SideSingle
		if m.form.Side() == models.SideSingle {
			next = models.SideDouble
		}
		m.form.SetSide(next)
		m.clearInputs()
		return nil

	case m.form.Side() == models.SideSingle && (key.Matches(msg, keys.Left) || key.Matches(msg, keys.Right)):
		poolAssets := m.form.Pool().Assets
		if len(poolAssets) < 2 {
			return nil
		}
		idx := m.inputIndex(m.form.SingleDenom())
		if key.Matches(msg, keys.Right) {
			idx = (idx + 1) % len(poolAssets)
		} else {
			idx = (idx - 1 + len(poolAssets)) % len(poolAssets)
		}
		if err := m.form.SetSingleDenom(poolAssets[idx].Denom); err == nil {
			m.clearInputs()
		}
		return nil

	case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Down):
		if len(active) > 0 {
			m.focus = (m.focus + 1) % len(active)
			m.syncFocus()
		}
		return nil

	case key.Matches(msg, keys.ShiftTab), key.Matches(msg, keys.Up):
		if len(active) > 0 {
			m.focus = (m.focus - 1 + len(active)) % len(active)
			m.syncFocus()
		}
		return nil

	case key.Matches(msg, keys.Max):
		if a, ok := m.focusedAsset(); ok {
			value := m.form.Balance(a).String()
			m.inputs[m.inputIndex(a.Denom)].SetValue(value)
			_ = m.form.SetAmount(a.Denom, value)
		}
		return nil

	case key.Matches(msg, keys.Enter):
		return m.submit()
	}

	if msg.Type == tea.KeyRunes && !numericRunes(msg.Runes) {
		return nil
	}
	a, ok := m.focusedAsset()
	if !ok {
		return nil
	}
	i := m.inputIndex(a.Denom)
	var cmd tea.Cmd
	m.inputs[i], cmd = m.inputs[i].Update(msg)
	if v := m.inputs[i].Value(); v != m.form.Amount(a.Denom) {
		_ = m.form.SetAmount(a.Denom, v)
		m.status = ""
	}
	return cmd
}

func (m *AddLiquidityModel) updateSlippage(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Escape):
		return m.closeSlippage()

	case key.Matches(msg, keys.Tab), key.Matches(msg, keys.Right):
		m.slippage = liquidity.NextSlippagePreset(m.slippage)
		m.slippageInput.SetValue("")
		m.slippageErr = ""
		return nil

	case key.Matches(msg, keys.Enter):
		if v := strings.TrimSpace(m.slippageInput.Value()); v != "" {
			if _, err := liquidity.NormalizeSlippage(v); err != nil {
				m.slippageErr = err.Error()
				return nil
			}
			m.slippage = v
		}
		return m.closeSlippage()
	}

	if msg.Type == tea.KeyRunes && !numericRunes(msg.Runes) {
		return nil
	}
	var cmd tea.Cmd
	m.slippageInput, cmd = m.slippageInput.Update(msg)
	return cmd
}

func (m *AddLiquidityModel) closeSlippage() tea.Cmd {
	m.slippageOpen = false
	m.slippageInput.Blur()
	if m.slippage == m.slippagePrev || m.opts.OnSlippage == nil {
		return nil
	}
	return m.opts.OnSlippage(m.slippage)
}

func (m *AddLiquidityModel) submit() tea.Cmd {
	if !m.opts.Connected {
		if m.opts.OnConnect != nil {
			return m.opts.OnConnect()
		}
		m.status = "No wallet configured"
		return nil
	}
	if m.form.Decision().Disabled {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.submitting = true
	m.status = ""
	data := m.form.Data(m.slippage)
	gate := m.opts.Gate

	run := func() tea.Msg {
		err := gate.Run(ctx, data, nil)
		return submitResultMsg{form: m, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *AddLiquidityModel) handleResult(err error) tea.Cmd {
	m.submitting = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	switch {
	case err == nil:
		m.ctrl.Hide()
		if m.opts.OnSuccess != nil {
			return m.opts.OnSuccess()
		}
	case errors.Is(err, context.Canceled):
		// closed by the user, nothing left to show
	default:
		m.form.SetFormError(err)
	}
	return nil
}

func (m *AddLiquidityModel) clearInputs() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.focus = 0
	m.syncFocus()
}

func (m *AddLiquidityModel) syncFocus() {
	focused, _ := m.focusedAsset()
	for i, a := range m.form.Pool().Assets {
		if a.Denom == focused.Denom {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *AddLiquidityModel) focusedAsset() (models.Asset, bool) {
	active := m.form.ActiveAssets()
	if m.focus < 0 || m.focus >= len(active) {
		return models.Asset{}, false
	}
	return active[m.focus], true
}

func (m *AddLiquidityModel) inputIndex(denom string) int {
	for i, a := range m.form.Pool().Assets {
		if a.Denom == denom {
			return i
		}
	}
	return 0
}

func numericRunes(rs []rune) bool {
	for _, r := range rs {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

func (m *AddLiquidityModel) View(width, height int) string {
	pool := m.form.Pool()

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(m.Title()),
		"  ",
		subtleStyle.Render(fmt.Sprintf("⚙ Max Slippage %s", liquidity.SlippageLabel(m.slippage))),
	)

	symbols := make([]string, len(pool.Assets))
	for i, a := range pool.Assets {
		symbols[i] = a.Symbol
	}
	poolLine := fmt.Sprintf("%s  %s", strings.Join(symbols, "·"), pool.Name)
	if m.form.CanSwitchSide() {
		double, single := activeTabStyle, tabStyle
		if m.form.Side() == models.SideSingle {
			double, single = tabStyle, activeTabStyle
		}
		poolLine = lipgloss.JoinVertical(lipgloss.Left,
			poolLine,
			lipgloss.JoinHorizontal(lipgloss.Top, double.Render("Double Sided"), single.Render("Single Sided")),
		)
	}

	errs := m.form.Validate()
	var fields []string
	for _, a := range m.form.ActiveAssets() {
		i := m.inputIndex(a.Denom)
		hint := fmt.Sprintf("Balance: %s", utils.FormatDecimal(m.form.Balance(a), m.opts.Places))
		field := fmt.Sprintf("%-8s %s  %s", a.Symbol, m.inputs[i].View(), subtleStyle.Render(hint))
		if err, ok := errs[a.Denom]; ok {
			field = lipgloss.JoinVertical(lipgloss.Left, field, errStyle.Render("  "+err.Error()))
		}
		fields = append(fields, field)
	}

	var popover string
	if m.slippageOpen {
		var presets []string
		for _, p := range liquidity.SlippagePresets {
			style := tabStyle
			if p == m.slippage {
				style = activeTabStyle
			}
			presets = append(presets, style.Render(liquidity.SlippageLabel(p)))
		}
		lines := []string{
			"Max Slippage",
			lipgloss.JoinHorizontal(lipgloss.Top, presets...),
			m.slippageInput.View(),
		}
		if m.slippageErr != "" {
			lines = append(lines, errStyle.Render(m.slippageErr))
		}
		lines = append(lines, subtleStyle.Render("tab: next preset • enter: apply • esc: close"))
		popover = boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	decision := m.Decision()
	label := decision.Label
	if m.submitting {
		label = m.spinner.View() + " " + label
	}
	button := buttonStyle.Render(label)
	if decision.Disabled || m.submitting {
		button = disabledButtonStyle.Render(label)
	}

	parts := []string{header, ""}
	if popover != "" {
		parts = append(parts, popover, "")
	}
	parts = append(parts, poolLine, "", subtleStyle.Render("Deposit Amount"), strings.Join(fields, "\n"))
	parts = append(parts, "", subtleStyle.Render(strings.Repeat("╌", 44)), "", button)
	if err := m.form.FormError(); err != nil {
		parts = append(parts, errStyle.Render(err.Error()))
	}
	if m.status != "" {
		parts = append(parts, warnStyle.Render(m.status))
	}
	fee := subtleStyle.Render("Fee ") + liquidity.FeeLabel(pool)
	parts = append(parts, lipgloss.PlaceHorizontal(44, lipgloss.Right, fee))

	keysHelp := []key.Binding{keys.Enter, keys.Escape, keys.Tab, keys.Max, keys.Slippage}
	if m.form.CanSwitchSide() {
		keysHelp = append(keysHelp, keys.Side)
	}
	parts = append(parts, "", subtleStyle.Render(helpLine(keysHelp...)))

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
