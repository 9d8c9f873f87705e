package liquidity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"towerterm/pkg/assets"
	"towerterm/pkg/models"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownDenom        = errors.New("denom is not part of the pool")
)

// Form is the deposit form of the add-liquidity modal. It holds raw field
// values and derives validation from the current balance snapshot.
type Form struct {
	pool     models.Pool
	side     models.Side
	single   string
	amounts  map[string]string
	balances models.Balances
	formErr  error
}

// NewForm starts a double-sided form for pool. Single-sided deposits use the
// first pool asset until SetSingleDenom picks another.
func NewForm(pool models.Pool, balances models.Balances) *Form {
	f := &Form{
		pool:     pool,
		side:     models.SideDouble,
		amounts:  make(map[string]string),
		balances: balances,
	}
	if len(pool.Assets) > 0 {
		f.single = pool.Assets[0].Denom
	}
	return f
}

func (f *Form) Pool() models.Pool { return f.pool }
func (f *Form) Side() models.Side { return f.side }
func (f *Form) SingleDenom() string { return f.single }

// CanSwitchSide reports whether the pool supports single-sided deposits.
func (f *Form) CanSwitchSide() bool {
	return f.pool.Type == models.PoolConcentrated
}

// SetSide changes the deposit mode and clears every field. It is a no-op for
// pools that only accept double-sided deposits.
func (f *Form) SetSide(side models.Side) {
	if !f.CanSwitchSide() || side == f.side {
		return
	}
	f.side = side
	f.Reset()
}

// SetSingleDenom selects the asset used by single-sided deposits.
func (f *Form) SetSingleDenom(denom string) error {
	if _, ok := f.asset(denom); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
	}
	if denom != f.single {
		f.single = denom
		f.Reset()
	}
	return nil
}

// SetAmount stores the raw field value for denom.
func (f *Form) SetAmount(denom, value string) error {
	if _, ok := f.asset(denom); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
	}
	f.amounts[denom] = value
	f.formErr = nil
	return nil
}

func (f *Form) Amount(denom string) string {
	return f.amounts[denom]
}

// SetBalances swaps in a fresh balance snapshot.
func (f *Form) SetBalances(b models.Balances) {
	f.balances = b
}

func (f *Form) Balance(a models.Asset) decimal.Decimal {
	return assets.NumericBalance(a, f.balances)
}

// Reset clears field values and any form-level error.
func (f *Form) Reset() {
	f.amounts = make(map[string]string)
	f.formErr = nil
}

// SetFormError records a form-level failure such as a rejected submission.
// It is cleared by the next edit.
func (f *Form) SetFormError(err error) {
	f.formErr = err
}

func (f *Form) FormError() error {
	return f.formErr
}

// ActiveAssets are the assets whose fields take part in the deposit.
func (f *Form) ActiveAssets() []models.Asset {
	if f.side == models.SideSingle {
		if a, ok := f.asset(f.single); ok {
			return []models.Asset{a}
		}
		return nil
	}
	return f.pool.Assets
}

// Validate returns per-denom field errors. Empty or non-positive amounts are
// incomplete rather than erroneous.
func (f *Form) Validate() map[string]error {
	errs := make(map[string]error)
	for _, a := range f.ActiveAssets() {
		amt, ok := parseAmount(f.amounts[a.Denom])
		if !ok {
			continue
		}
		if amt.GreaterThan(f.Balance(a)) {
			errs[a.Denom] = fmt.Errorf("%w: %s", ErrInsufficientBalance, a.Symbol)
		}
	}
	return errs
}

func (f *Form) HasErrors() bool {
	return f.formErr != nil || len(f.Validate()) > 0
}

// IsValid reports whether every active field holds a positive amount within
// balance.
func (f *Form) IsValid() bool {
	active := f.ActiveAssets()
	if len(active) == 0 || len(f.Validate()) > 0 {
		return false
	}
	for _, a := range active {
		if _, ok := parseAmount(f.amounts[a.Denom]); !ok {
			return false
		}
	}
	return true
}

func (f *Form) Decision() models.FormSubmitDecision {
	return Decide(f.HasErrors(), f.IsValid())
}

// Data builds the submit payload: raw field values plus the normalized
// slippage fraction.
func (f *Form) Data(slippage string) models.DepositFormData {
	amounts := make(map[string]string)
	for _, a := range f.ActiveAssets() {
		if v, ok := f.amounts[a.Denom]; ok {
			amounts[a.Denom] = v
		}
	}
	return models.DepositFormData{
		Pool:              f.pool.Address,
		Side:              f.side,
		Amounts:           amounts,
		SlippageTolerance: NormalizeSlippageOrDefault(slippage).String(),
	}
}

func (f *Form) asset(denom string) (models.Asset, bool) {
	for _, a := range f.pool.Assets {
		if a.Denom == denom {
			return a, true
		}
	}
	return models.Asset{}, false
}

func parseAmount(raw string) (decimal.Decimal, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
