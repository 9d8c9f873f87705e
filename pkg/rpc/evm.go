package rpc

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"towerterm/pkg/config"
	"towerterm/pkg/models"
)

// NativeDenom marks the chain's gas token in an EVM source's asset list.
const NativeDenom = "native"

// balanceOf(address) selector
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// FetchEVMBalances reads native and ERC-20 balances in raw units. Assets that
// fail on one RPC are retried on the next.
func FetchEVMBalances(ctx context.Context, src config.SourceConfig, owner string) (models.BalanceData, error) {
	if !common.IsHexAddress(owner) {
		err := fmt.Errorf("%s: invalid owner address %q", src.Name, owner)
		return models.BalanceData{Source: src.Name, Err: err}, err
	}
	account := common.HexToAddress(owner)

	balances := make(models.Balances)
	pending := make([]config.AssetConfig, len(src.Assets))
	copy(pending, src.Assets)

	var failed []string
	var lastErr error
	for _, rpcURL := range src.URLs {
		if len(pending) == 0 {
			break
		}

		rctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		client, err := ethclient.DialContext(rctx, rpcURL)
		if err != nil {
			cancel()
			failed = append(failed, rpcURL)
			lastErr = err
			recordFailure(src, rpcURL, err)
			continue
		}

		var next []config.AssetConfig
		for _, asset := range pending {
			amount, err := evmBalance(rctx, client, asset, account)
			if err != nil {
				next = append(next, asset)
				lastErr = err
				continue
			}
			balances[asset.Denom] = models.Balance{Denom: asset.Denom, Amount: amount.String()}
		}
		client.Close()
		cancel()

		if len(next) > 0 {
			failed = append(failed, rpcURL)
			recordFailure(src, rpcURL, lastErr)
		}
		pending = next
	}

	data := models.BalanceData{Source: src.Name, Balances: balances, FailedRPCs: failed}
	if len(pending) > 0 {
		if lastErr == nil {
			lastErr = ErrNoSource
		}
		for _, a := range pending {
			data.Unresolved = append(data.Unresolved, a.Denom)
		}
		data.Err = fmt.Errorf("%s: %d assets unresolved: %w", src.Name, len(pending), lastErr)
		// partial balances are still useful to the caller
		if len(balances) == 0 {
			return data, data.Err
		}
	}
	return data, nil
}

func evmBalance(ctx context.Context, client *ethclient.Client, asset config.AssetConfig, account common.Address) (*big.Int, error) {
	if strings.EqualFold(asset.Denom, NativeDenom) {
		return client.BalanceAt(ctx, account, nil)
	}
	if !common.IsHexAddress(asset.Denom) {
		return nil, fmt.Errorf("asset %s: denom %q is not a token address", asset.Symbol, asset.Denom)
	}

	data := make([]byte, 4+32)
	copy(data[0:4], balanceOfSelector)
	copy(data[4+12:], account.Bytes())
	tokenAddr := common.HexToAddress(asset.Denom)
	msg := ethereum.CallMsg{To: &tokenAddr, Data: data}
	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func evmChainID(ctx context.Context, rpcURL string) (string, error) {
	rctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()
	client, err := ethclient.DialContext(rctx, rpcURL)
	if err != nil {
		return "", err
	}
	defer client.Close()
	id, err := client.ChainID(rctx)
	if err != nil {
		return "", fmt.Errorf("failed to get ChainID: %w", err)
	}
	return id.String(), nil
}
