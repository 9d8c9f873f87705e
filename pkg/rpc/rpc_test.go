package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"towerterm/pkg/config"
)

const evmOwner = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func newEVMNode(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int           `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var result interface{}
		switch req.Method {
		case "eth_chainId":
			result = "0x1"
		case "eth_getBalance":
			result = "0x22B1C8C1227A0000" // 2.5 ETH
		case "eth_call":
			result = "0x000000000000000000000000000000000000000000000000000000001dcd6500" // 500 USDC
		default:
			result = "0x0"
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newLCD(t *testing.T, owner string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/cosmos/base/tendermint/v1beta1/node_info":
			_, _ = w.Write([]byte(`{"default_node_info":{"network":"osmosis-1"}}`))
		case r.URL.Path == "/cosmos/bank/v1beta1/balances/"+owner:
			if r.URL.Query().Get("pagination.key") == "" {
				_, _ = w.Write([]byte(`{"balances":[{"denom":"uosmo","amount":"500000"},{"denom":"ufoo","amount":"1"}],"pagination":{"next_key":"page2"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"balances":[{"denom":"uatom","amount":"2000000"}],"pagination":{"next_key":null}}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func cosmosSource(urls ...string) config.SourceConfig {
	return config.SourceConfig{
		Name: "Osmosis",
		Kind: config.SourceCosmos,
		URLs: urls,
		Assets: []config.AssetConfig{
			{Symbol: "OSMO", Denom: "uosmo", Decimals: 6},
			{Symbol: "ATOM", Denom: "uatom", Decimals: 6},
			{Symbol: "TIA", Denom: "utia", Decimals: 6},
		},
	}
}

func TestFetchCosmosBalances(t *testing.T) {
	lcd := newLCD(t, "osmo1owner")
	defer lcd.Close()

	data, err := FetchBalances(context.Background(), cosmosSource(lcd.URL), "osmo1owner")
	require.NoError(t, err)
	assert.Equal(t, "Osmosis", data.Source)
	assert.Equal(t, "500000", data.Balances["uosmo"].Amount)
	assert.Equal(t, "2000000", data.Balances["uatom"].Amount)
	assert.NotContains(t, data.Balances, "ufoo", "unconfigured denoms are dropped")
	assert.NotContains(t, data.Balances, "utia", "missing denoms are absent, not errors")
}

func TestFetchCosmosBalances_Failover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer broken.Close()
	lcd := newLCD(t, "osmo1owner")
	defer lcd.Close()

	data, err := FetchBalances(context.Background(), cosmosSource(broken.URL, lcd.URL), "osmo1owner")
	require.NoError(t, err)
	assert.Equal(t, []string{broken.URL}, data.FailedRPCs)
	assert.Equal(t, "500000", data.Balances["uosmo"].Amount)
}

func TestFetchCosmosBalances_AllFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer broken.Close()

	data, err := FetchBalances(context.Background(), cosmosSource(broken.URL), "osmo1owner")
	require.Error(t, err)
	assert.Equal(t, err, data.Err)
	assert.Len(t, data.FailedRPCs, 1)
}

func TestFetchBalances_NotConnected(t *testing.T) {
	data, err := FetchBalances(context.Background(), cosmosSource("http://unused"), "")
	require.NoError(t, err)
	assert.Empty(t, data.Balances)
}

func TestFetchBalances_UnknownKind(t *testing.T) {
	_, err := FetchBalances(context.Background(), config.SourceConfig{Name: "x", Kind: "solana"}, "owner")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFetchEVMBalances(t *testing.T) {
	node := newEVMNode(t)
	defer node.Close()

	src := config.SourceConfig{
		Name: "Ethereum",
		Kind: config.SourceEVM,
		URLs: []string{node.URL},
		Assets: []config.AssetConfig{
			{Symbol: "ETH", Denom: "native", Decimals: 18},
			{Symbol: "USDC", Denom: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		},
	}

	data, err := FetchBalances(context.Background(), src, evmOwner)
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000", data.Balances["native"].Amount)
	assert.Equal(t, "500000000", data.Balances["0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"].Amount)
}

func TestFetchEVMBalances_PartialAndInvalid(t *testing.T) {
	node := newEVMNode(t)
	defer node.Close()

	src := config.SourceConfig{
		Name: "Ethereum",
		Kind: config.SourceEVM,
		URLs: []string{node.URL},
		Assets: []config.AssetConfig{
			{Symbol: "ETH", Denom: "native", Decimals: 18},
			{Symbol: "BAD", Denom: "not-an-address", Decimals: 6},
		},
	}

	data, err := FetchBalances(context.Background(), src, evmOwner)
	require.NoError(t, err, "partial results are returned without error")
	require.Error(t, data.Err)
	assert.Contains(t, data.Err.Error(), "1 assets unresolved")
	assert.Equal(t, "2500000000000000000", data.Balances["native"].Amount)
	assert.Equal(t, []string{"not-an-address"}, data.Unresolved)

	_, err = FetchBalances(context.Background(), src, "osmo1owner")
	assert.Error(t, err)
}

func TestCheckSource(t *testing.T) {
	lcd := newLCD(t, "osmo1owner")
	defer lcd.Close()
	node := newEVMNode(t)
	defer node.Close()

	res := CheckSource(context.Background(), cosmosSource(lcd.URL, "http://127.0.0.1:1"))
	assert.Equal(t, "osmosis-1", res.Network)
	require.Len(t, res.URLs, 2)
	assert.Equal(t, "ok", res.URLs[0].Status)
	assert.Equal(t, "error", res.URLs[1].Status)

	res = CheckSource(context.Background(), config.SourceConfig{Name: "Ethereum", Kind: config.SourceEVM, URLs: []string{node.URL}})
	assert.Equal(t, "1", res.Network)

	res = CheckSource(context.Background(), config.SourceConfig{Name: "x", Kind: "solana", URLs: []string{"http://x"}})
	assert.True(t, strings.Contains(res.URLs[0].Error, "unknown source kind"))
}
