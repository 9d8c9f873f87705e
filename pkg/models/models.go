package models

import (
	"time"
)

// Asset describes a fungible token that can be picked or deposited.
type Asset struct {
	Symbol   string `json:"symbol"`
	Denom    string `json:"denom"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logo_uri,omitempty"`
}

// Balance holds a raw micro-unit amount for a single denom.
type Balance struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"` // integer micro-units as a decimal string
}

// Balances maps denom to its balance. A missing key means zero.
type Balances map[string]Balance

// Amount returns the raw amount for denom and whether an entry exists.
func (b Balances) Amount(denom string) (string, bool) {
	bal, ok := b[denom]
	if !ok {
		return "", false
	}
	return bal.Amount, true
}

// Clone returns a shallow copy safe to hand to readers.
func (b Balances) Clone() Balances {
	cp := make(Balances, len(b))
	for k, v := range b {
		cp[k] = v
	}
	return cp
}

// PoolType is the AMM flavour of a pool.
type PoolType string

const (
	PoolStable       PoolType = "stable"
	PoolWeighted     PoolType = "weighted"
	PoolConcentrated PoolType = "concentrated"
)

// Pool is a liquidity pool liquidity can be added to.
type Pool struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Type    PoolType `json:"type"`
	Fee     float64  `json:"fee"` // fraction, e.g. 0.003
	Assets  []Asset  `json:"assets"`
}

// Side selects whether a deposit contributes both pool assets or only one.
type Side string

const (
	SideDouble Side = "double"
	SideSingle Side = "single"
)

// FilterState is the derived result of an asset search.
type FilterState struct {
	Query   string  `json:"query"`
	Results []Asset `json:"results"`
}

// FormSubmitDecision drives the submit button of the deposit form.
type FormSubmitDecision struct {
	Disabled bool   `json:"disabled"`
	Label    string `json:"label"`
}

// DepositFormData is what gets forwarded to the submit handler: the raw
// field values keyed by denom plus the normalized slippage fraction.
type DepositFormData struct {
	Pool              string            `json:"pool"`
	Side              Side              `json:"side"`
	Amounts           map[string]string `json:"amounts"`
	SlippageTolerance string            `json:"slippage_tolerance"`
}

// BalanceData contains the result of a balance fetch for one source.
// Unresolved lists denoms the fetch could not read; their previous amounts
// stay in place.
type BalanceData struct {
	Source     string
	Balances   Balances
	FailedRPCs []string
	Unresolved []string
	Err        error
}

// BalancePoint holds a timestamped human-unit balance value.
type BalancePoint struct {
	Timestamp time.Time
	Value     float64
}

// SourceResult holds -test results for a balance source.
type SourceResult struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Network string      `json:"network,omitempty"`
	URLs    []URLResult `json:"urls"`
}

// URLResult holds -test results for a single endpoint.
type URLResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	Network string `json:"network,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string         `json:"config_path"`
	ValidStructure  bool           `json:"valid_structure"`
	StructureErrors []string       `json:"structure_errors,omitempty"`
	SourceCount     int            `json:"source_count"`
	AssetCount      int            `json:"asset_count"`
	PoolCount       int            `json:"pool_count"`
	Sources         []SourceResult `json:"sources,omitempty"`
}
