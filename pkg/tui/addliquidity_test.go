package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerterm/pkg/liquidity"
	"towerterm/pkg/models"
)

func concentratedPool() models.Pool {
	return models.Pool{
		Address: "osmo1pool",
		Name:    "ATOM/OSMO",
		Type:    models.PoolConcentrated,
		Fee:     0.002,
		Assets:  []models.Asset{atom, osmo},
	}
}

// drain runs cmd and any batched commands, returning every message.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func submitResult(t *testing.T, cmd tea.Cmd) submitResultMsg {
	t.Helper()
	for _, msg := range drain(cmd) {
		if res, ok := msg.(submitResultMsg); ok {
			return res
		}
	}
	t.Fatal("no submit result produced")
	return submitResultMsg{}
}

func newTestAddLiquidity(ctrl *fakeController, submitter liquidity.Submitter, onSuccess func() tea.Cmd) *AddLiquidityModel {
	return NewAddLiquidityModel(ctrl, AddLiquidityOptions{
		Pool:      concentratedPool(),
		Balances:  testBalances(),
		Connected: true,
		Places:    4,
		Gate:      liquidity.NewGate(submitter),
		OnSuccess: onSuccess,
	})
}

func fillBoth(m *AddLiquidityModel, first, second string) {
	typeText(m.Update, first)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	typeText(m.Update, second)
}

func TestAddLiquidity_DecisionFollowsInput(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	assert.Equal(t, models.FormSubmitDecision{Disabled: true, Label: "Choose Amount"}, m.Decision())

	typeText(m.Update, "1.5")
	assert.Equal(t, "1.5", m.Form().Amount("uatom"))
	assert.Equal(t, "Choose Amount", m.Decision().Label)

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	typeText(m.Update, "0.6")
	assert.Equal(t, models.FormSubmitDecision{Disabled: true, Label: "Insufficient Balance"}, m.Decision())
	assert.Contains(t, m.View(100, 50), "insufficient balance")

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	typeText(m.Update, "5")
	assert.Equal(t, models.FormSubmitDecision{Disabled: false, Label: "Deposit & Stake"}, m.Decision())
}

func TestAddLiquidity_IgnoresLetters(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	typeText(m.Update, "1x2")
	assert.Equal(t, "12", m.Form().Amount("uatom"))
}

func TestAddLiquidity_MaxFillsBalance(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	assert.Equal(t, "2", m.Form().Amount("uatom"))
	assert.False(t, m.Form().HasErrors())
}

func TestAddLiquidity_SideSwitchResets(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	typeText(m.Update, "1")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Equal(t, models.SideSingle, m.Form().Side())
	assert.Empty(t, m.Form().Amount("uatom"))
	require.Len(t, m.Form().ActiveAssets(), 1)

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "uosmo", m.Form().SingleDenom())

	typeText(m.Update, "0.5")
	assert.Equal(t, "0.5", m.Form().Amount("uosmo"))
	assert.Equal(t, "Deposit & Stake", m.Decision().Label)
	assert.Contains(t, m.View(100, 50), "Single Sided")
}

func TestAddLiquidity_NoSideSwitchForWeightedPools(t *testing.T) {
	pool := concentratedPool()
	pool.Type = models.PoolWeighted
	m := NewAddLiquidityModel(&fakeController{}, AddLiquidityOptions{Pool: pool, Connected: true})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Equal(t, models.SideDouble, m.Form().Side())
	assert.NotContains(t, m.View(100, 50), "Single Sided")
}

func TestAddLiquidity_SlippagePopover(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	assert.Equal(t, "0.04", m.Slippage())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "auto", m.Slippage())
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "0.1", m.Slippage())
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	typeText(m.Update, "..")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "0.1", m.Slippage(), "invalid custom value is rejected")
	assert.Contains(t, m.View(100, 50), "invalid slippage format")

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	typeText(m.Update, "2")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "2", m.Slippage())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "2", m.Slippage())
}

func TestAddLiquidity_SlippageChangeReported(t *testing.T) {
	var saved []string
	m := NewAddLiquidityModel(&fakeController{}, AddLiquidityOptions{
		Pool:      concentratedPool(),
		Balances:  testBalances(),
		Connected: true,
		OnSlippage: func(v string) tea.Cmd {
			saved = append(saved, v)
			return nil
		},
	})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"auto"}, saved)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []string{"auto"}, saved, "unchanged value is not reported")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	typeText(m.Update, "1.5")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"auto", "1.5"}, saved)
}

func TestAddLiquidity_SubmitSuccess(t *testing.T) {
	ctrl := &fakeController{}
	var got models.DepositFormData
	successes := 0
	m := newTestAddLiquidity(ctrl, liquidity.SubmitterFunc(func(ctx context.Context, data models.DepositFormData) error {
		got = data
		return nil
	}), func() tea.Cmd {
		successes++
		return nil
	})

	fillBoth(m, "1", "0.25")
	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.Submitting())
	assert.Contains(t, m.View(100, 50), "Deposit & Stake")

	m.Update(submitResult(t, cmd))
	assert.False(t, m.Submitting())
	assert.Equal(t, 1, successes)
	assert.Equal(t, []string{"hide"}, ctrl.calls)
	assert.Equal(t, models.DepositFormData{
		Pool:              "osmo1pool",
		Side:              models.SideDouble,
		Amounts:           map[string]string{"uatom": "1", "uosmo": "0.25"},
		SlippageTolerance: "0.0004",
	}, got)
}

func TestAddLiquidity_DisabledButtonDoesNotSubmit(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.SubmitterFunc(func(context.Context, models.DepositFormData) error {
		t.Fatal("submit must not run")
		return nil
	}), nil)

	typeText(m.Update, "1")
	assert.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter}))
	assert.False(t, m.Submitting())
}

func TestAddLiquidity_SubmitFailureStaysOpen(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestAddLiquidity(ctrl, liquidity.SubmitterFunc(func(context.Context, models.DepositFormData) error {
		return errors.New("insufficient funds for fee")
	}), func() tea.Cmd {
		t.Fatal("success callback on failure")
		return nil
	})

	fillBoth(m, "1", "0.25")
	m.Update(submitResult(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter})))

	assert.Empty(t, ctrl.calls)
	require.Error(t, m.Form().FormError())
	assert.Equal(t, "Insufficient Balance", m.Decision().Label)
	assert.Contains(t, m.View(100, 50), "insufficient funds for fee")

	typeText(m.Update, "1")
	assert.NoError(t, m.Form().FormError(), "editing clears the submit error")
}

func TestAddLiquidity_EscapeCancelsSubmit(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestAddLiquidity(ctrl, liquidity.SubmitterFunc(func(ctx context.Context, data models.DepositFormData) error {
		<-ctx.Done()
		return ctx.Err()
	}), func() tea.Cmd {
		t.Fatal("success callback after cancel")
		return nil
	})

	fillBoth(m, "1", "0.25")
	cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []string{"hide"}, ctrl.calls)

	res := submitResult(t, cmd)
	assert.ErrorIs(t, res.err, context.Canceled)
	m.Update(res)
	assert.NoError(t, m.Form().FormError())
	assert.Equal(t, []string{"hide"}, ctrl.calls, "a cancelled submit does not hide twice")
}

func TestAddLiquidity_ForeignResultIgnored(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	other := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	m.Update(submitResultMsg{form: other, err: errors.New("boom")})
	assert.NoError(t, m.Form().FormError())
}

func TestAddLiquidity_NotConnected(t *testing.T) {
	connects := 0
	m := NewAddLiquidityModel(&fakeController{}, AddLiquidityOptions{
		Pool:     concentratedPool(),
		Balances: testBalances(),
		OnConnect: func() tea.Cmd {
			connects++
			return nil
		},
	})

	assert.Equal(t, models.FormSubmitDecision{Disabled: false, Label: "Connect Wallet"}, m.Decision())
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, connects)
	assert.False(t, m.Submitting())
}

func TestAddLiquidity_FeeFooter(t *testing.T) {
	m := newTestAddLiquidity(&fakeController{}, liquidity.LogSubmitter{}, nil)
	view := m.View(100, 50)
	assert.Contains(t, view, "Fee")
	assert.Contains(t, view, "0.2%")
	assert.Contains(t, view, "Max Slippage 0.04%")
}
