package rpc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"towerterm/pkg/config"
	"towerterm/pkg/models"
)

var (
	ErrUnknownKind = errors.New("unknown source kind")
	ErrNoSource    = errors.New("no working endpoint")
)

var RequestTimeout = 15 * time.Second

var log zerolog.Logger

var fetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "towerterm",
	Subsystem: "rpc",
	Name:      "fetch_failures_total",
	Help:      "Failed balance fetches per endpoint.",
}, []string{"source", "url"})

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "rpc").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "rpc").Logger()
}

func newHTTPClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	c.RetryMax = 2
	c.RetryWaitMin = 100 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.HTTPClient.Timeout = RequestTimeout
	return c
}

var httpClient = newHTTPClient()

// FetchBalances reads the owner's balances for every asset of src. An empty
// owner means the wallet is not connected and yields an empty result. Denoms
// the chain does not report are left out and count as zero.
func FetchBalances(ctx context.Context, src config.SourceConfig, owner string) (models.BalanceData, error) {
	if owner == "" {
		return models.BalanceData{Source: src.Name, Balances: models.Balances{}}, nil
	}
	switch src.Kind {
	case config.SourceCosmos:
		return FetchCosmosBalances(ctx, src, owner)
	case config.SourceEVM:
		return FetchEVMBalances(ctx, src, owner)
	}
	err := fmt.Errorf("%w: %q", ErrUnknownKind, src.Kind)
	return models.BalanceData{Source: src.Name, Err: err}, err
}

// CheckSource queries every endpoint of src and reports the network each one
// claims to serve.
func CheckSource(ctx context.Context, src config.SourceConfig) models.SourceResult {
	res := models.SourceResult{Name: src.Name, Kind: src.Kind}
	for _, u := range src.URLs {
		r := models.URLResult{URL: u}
		var network string
		var err error
		switch src.Kind {
		case config.SourceCosmos:
			network, err = cosmosNetwork(ctx, u)
		case config.SourceEVM:
			network, err = evmChainID(ctx, u)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownKind, src.Kind)
		}
		if err != nil {
			r.Status = "error"
			r.Error = err.Error()
		} else {
			r.Status = "ok"
			r.Network = network
			if res.Network == "" {
				res.Network = network
			}
		}
		res.URLs = append(res.URLs, r)
	}
	return res
}

func recordFailure(src config.SourceConfig, url string, err error) {
	fetchFailures.WithLabelValues(src.Name, url).Inc()
	log.Warn().Err(err).Str("source", src.Name).Str("url", url).Msg("balance fetch failed")
}
