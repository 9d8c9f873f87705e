package liquidity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/atomic"

	"towerterm/pkg/models"
)

var ErrSubmitInFlight = errors.New("a deposit is already being submitted")

// Submitter forwards a deposit to whatever signs and broadcasts it.
type Submitter interface {
	Submit(ctx context.Context, data models.DepositFormData) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, data models.DepositFormData) error

func (f SubmitterFunc) Submit(ctx context.Context, data models.DepositFormData) error {
	return f(ctx, data)
}

// Gate allows at most one submission in flight.
type Gate struct {
	submitter Submitter
	inFlight  *atomic.Bool
}

func NewGate(s Submitter) *Gate {
	return &Gate{submitter: s, inFlight: atomic.NewBool(false)}
}

// InFlight reports whether a submission is running.
func (g *Gate) InFlight() bool {
	return g.inFlight.Load()
}

// Run submits data and calls onSuccess exactly once if the submission
// succeeds and ctx is still live. A concurrent call returns
// ErrSubmitInFlight without touching the submitter.
func (g *Gate) Run(ctx context.Context, data models.DepositFormData, onSuccess func()) error {
	if !g.inFlight.CompareAndSwap(false, true) {
		submitsTotal.WithLabelValues("rejected").Inc()
		return ErrSubmitInFlight
	}
	defer g.inFlight.Store(false)

	if err := ctx.Err(); err != nil {
		submitsTotal.WithLabelValues("abandoned").Inc()
		return err
	}
	if err := g.submitter.Submit(ctx, data); err != nil {
		submitsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("pool", data.Pool).Msg("deposit failed")
		return fmt.Errorf("submit deposit: %w", err)
	}
	// closed before completion: finality belongs to the chain, just drop it
	if err := ctx.Err(); err != nil {
		submitsTotal.WithLabelValues("abandoned").Inc()
		return err
	}
	submitsTotal.WithLabelValues("ok").Inc()
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}

// LogSubmitter only logs the payload. Used for dry runs.
type LogSubmitter struct{}

func (LogSubmitter) Submit(_ context.Context, data models.DepositFormData) error {
	log.Info().
		Str("pool", data.Pool).
		Str("side", string(data.Side)).
		Interface("amounts", data.Amounts).
		Str("slippage_tolerance", data.SlippageTolerance).
		Msg("submitting deposit (dry run)")
	return nil
}

// HTTPSubmitter posts the payload as JSON to an external signer.
type HTTPSubmitter struct {
	Endpoint string
	client   *retryablehttp.Client
}

func NewHTTPSubmitter(endpoint string, timeout time.Duration) *HTTPSubmitter {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	return &HTTPSubmitter{Endpoint: endpoint, client: client}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, data models.DepositFormData) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode deposit: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("signer returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
