// Package assets implements the searchable, balance-ranked asset list shown by
// the bridge asset picker.
package assets

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"towerterm/pkg/models"
	"towerterm/pkg/utils"
)

// Matches reports whether query is a case-insensitive substring of the
// asset's symbol or denom. An empty query matches everything.
func Matches(a models.Asset, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(a.Symbol), q) ||
		strings.Contains(strings.ToLower(a.Denom), q)
}

// NumericBalance converts the raw micro-unit balance of a into human units.
// Missing or unparsable amounts count as zero.
func NumericBalance(a models.Asset, balances models.Balances) decimal.Decimal {
	raw, ok := balances.Amount(a.Denom)
	if !ok || raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		log.Debug().Str("denom", a.Denom).Str("amount", raw).Msg("unparsable balance treated as zero")
		return decimal.Zero
	}
	if a.Decimals <= 0 {
		return amount
	}
	return amount.Shift(-int32(a.Decimals))
}

// Filter returns the assets matching query, sorted by descending numeric
// balance. Equal balances keep their input order.
func Filter(list []models.Asset, balances models.Balances, query string) []models.Asset {
	type ranked struct {
		asset   models.Asset
		balance decimal.Decimal
	}

	matched := make([]ranked, 0, len(list))
	for _, a := range list {
		if !Matches(a, query) {
			continue
		}
		matched = append(matched, ranked{asset: a, balance: NumericBalance(a, balances)})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].balance.GreaterThan(matched[j].balance)
	})

	out := make([]models.Asset, len(matched))
	for i, r := range matched {
		out[i] = r.asset
	}
	filterQueries.Inc()
	return out
}

// FormatAmount renders the human balance of a with the given number of places.
func FormatAmount(a models.Asset, balances models.Balances, places int) string {
	return utils.FormatDecimal(NumericBalance(a, balances), places)
}

// FilterState keeps the picker's query and its derived results together.
type FilterState struct {
	source   []models.Asset
	balances models.Balances
	state    models.FilterState
}

// NewFilterState starts with an empty query, so every asset is listed.
func NewFilterState(list []models.Asset, balances models.Balances) *FilterState {
	fs := &FilterState{source: list, balances: balances}
	fs.recompute()
	return fs
}

// SetQuery recomputes the results for q.
func (fs *FilterState) SetQuery(q string) {
	fs.state.Query = q
	fs.recompute()
}

// SetBalances swaps in a fresh balance snapshot and re-ranks.
func (fs *FilterState) SetBalances(b models.Balances) {
	fs.balances = b
	fs.recompute()
}

func (fs *FilterState) Query() string { return fs.state.Query }
func (fs *FilterState) Results() []models.Asset { return fs.state.Results }
func (fs *FilterState) Balances() models.Balances { return fs.balances }

// State returns a copy of the derived state.
func (fs *FilterState) State() models.FilterState {
	results := make([]models.Asset, len(fs.state.Results))
	copy(results, fs.state.Results)
	return models.FilterState{Query: fs.state.Query, Results: results}
}

func (fs *FilterState) recompute() {
	fs.state.Results = Filter(fs.source, fs.balances, fs.state.Query)
}
