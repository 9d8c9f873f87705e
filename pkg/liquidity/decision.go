package liquidity

import (
	"github.com/shopspring/decimal"

	"towerterm/pkg/models"
)

const (
	LabelInsufficientBalance = "Insufficient Balance"
	LabelDeposit             = "Deposit & Stake"
	LabelChooseAmount        = "Choose Amount"
	LabelConnectWallet       = "Connect Wallet"
)

// Decide maps form state onto the submit button. Errors win over validity.
func Decide(hasErrors, isValid bool) models.FormSubmitDecision {
	switch {
	case hasErrors:
		return models.FormSubmitDecision{Disabled: true, Label: LabelInsufficientBalance}
	case isValid:
		return models.FormSubmitDecision{Disabled: false, Label: LabelDeposit}
	default:
		return models.FormSubmitDecision{Disabled: true, Label: LabelChooseAmount}
	}
}

// FeeLabel renders the pool swap fee as a percentage.
func FeeLabel(p models.Pool) string {
	return decimal.NewFromFloat(p.Fee).Mul(hundred).String() + "%"
}
