package liquidity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AutoSlippage lets the venue pick the tolerance.
	AutoSlippage = "auto"
	// AutoSlippagePercent is what "auto" stands for, in percent.
	AutoSlippagePercent = "0.05"
	// DefaultSlippage is the tolerance a fresh form starts with, in percent.
	DefaultSlippage = "0.04"
)

// SlippagePresets are the values the max-slippage switcher cycles through.
var SlippagePresets = []string{AutoSlippage, "0.1", "0.5", "1"}

var ErrInvalidSlippageFormat = errors.New("invalid slippage format")

var hundred = decimal.NewFromInt(100)

// NormalizeSlippage turns a percent string (or "auto") into a fraction.
// "auto" yields 0.0005 and "0.04" yields 0.0004.
func NormalizeSlippage(raw string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, AutoSlippage) {
		v = AutoSlippagePercent
	}
	pct, err := decimal.NewFromString(strings.TrimSuffix(v, "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidSlippageFormat, raw)
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("%w: %q out of range 0-100", ErrInvalidSlippageFormat, raw)
	}
	return pct.Div(hundred), nil
}

// NormalizeSlippageOrDefault clamps malformed input to the auto tolerance
// instead of failing the whole form.
func NormalizeSlippageOrDefault(raw string) decimal.Decimal {
	frac, err := NormalizeSlippage(raw)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to auto slippage")
		frac, _ = NormalizeSlippage(AutoSlippage)
	}
	return frac
}

// NextSlippagePreset returns the preset after current, wrapping around.
// Custom values jump back to the first preset.
func NextSlippagePreset(current string) string {
	for i, p := range SlippagePresets {
		if p == current {
			return SlippagePresets[(i+1)%len(SlippagePresets)]
		}
	}
	return SlippagePresets[0]
}

// SlippageLabel renders a tolerance the way the switcher shows it.
func SlippageLabel(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), AutoSlippage) {
		return "Auto"
	}
	return strings.TrimSuffix(strings.TrimSpace(raw), "%") + "%"
}
