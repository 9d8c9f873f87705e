package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"towerterm/pkg/config"
	"towerterm/pkg/models"
)

// Coin is the bank module's amount/denom pair.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type bankBalancesResponse struct {
	Balances   []Coin `json:"balances"`
	Pagination struct {
		NextKey string `json:"next_key"`
	} `json:"pagination"`
}

type nodeInfoResponse struct {
	DefaultNodeInfo struct {
		Network string `json:"network"`
	} `json:"default_node_info"`
}

// FetchCosmosBalances queries the LCD bank endpoint, failing over across the
// source's URLs until one answers.
func FetchCosmosBalances(ctx context.Context, src config.SourceConfig, owner string) (models.BalanceData, error) {
	wanted := make(map[string]bool, len(src.Assets))
	for _, a := range src.Assets {
		wanted[a.Denom] = true
	}

	var failed []string
	var lastErr error
	for _, base := range src.URLs {
		coins, err := bankBalances(ctx, base, owner)
		if err != nil {
			failed = append(failed, base)
			lastErr = err
			recordFailure(src, base, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		balances := make(models.Balances)
		for _, c := range coins {
			if wanted[c.Denom] {
				balances[c.Denom] = models.Balance{Denom: c.Denom, Amount: c.Amount}
			}
		}
		return models.BalanceData{Source: src.Name, Balances: balances, FailedRPCs: failed}, nil
	}

	if lastErr == nil {
		lastErr = ErrNoSource
	}
	err := fmt.Errorf("%s: %w", src.Name, lastErr)
	return models.BalanceData{Source: src.Name, FailedRPCs: failed, Err: err}, err
}

func bankBalances(ctx context.Context, base, owner string) ([]Coin, error) {
	var coins []Coin
	nextKey := ""
	for {
		q := url.Values{}
		q.Set("pagination.limit", "1000")
		if nextKey != "" {
			q.Set("pagination.key", nextKey)
		}
		endpoint := fmt.Sprintf("%s/cosmos/bank/v1beta1/balances/%s?%s",
			strings.TrimRight(base, "/"), url.PathEscape(owner), q.Encode())

		var resp bankBalancesResponse
		if err := getJSON(ctx, endpoint, &resp); err != nil {
			return nil, err
		}
		coins = append(coins, resp.Balances...)
		if resp.Pagination.NextKey == "" {
			return coins, nil
		}
		nextKey = resp.Pagination.NextKey
	}
}

func cosmosNetwork(ctx context.Context, base string) (string, error) {
	var resp nodeInfoResponse
	endpoint := strings.TrimRight(base, "/") + "/cosmos/base/tendermint/v1beta1/node_info"
	if err := getJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if resp.DefaultNodeInfo.Network == "" {
		return "", fmt.Errorf("node_info at %s has no network", base)
	}
	return resp.DefaultNodeInfo.Network, nil
}

func getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("GET %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
