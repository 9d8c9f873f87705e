package watcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"towerterm/pkg/assets"
	"towerterm/pkg/config"
	"towerterm/pkg/models"
	"towerterm/pkg/rpc"
)

// MaxHistoryPoints bounds the per-denom balance history.
const MaxHistoryPoints = 120

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "watcher").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "watcher").Logger()
}

// DataSource defines the interface for fetching data.
type DataSource interface {
	FetchBalances(ctx context.Context, src config.SourceConfig, owner string) (models.BalanceData, error)
}

// RealDataSource implements DataSource using the rpc package.
type RealDataSource struct{}

func (d *RealDataSource) FetchBalances(ctx context.Context, src config.SourceConfig, owner string) (models.BalanceData, error) {
	return rpc.FetchBalances(ctx, src, owner)
}

// SourceStatus is the outcome of the latest fetch for one source.
type SourceStatus struct {
	Name       string
	FailedRPCs []string
	Err        error
	UpdatedAt  time.Time
}

// Watcher polls every configured source and keeps a merged balance snapshot.
type Watcher struct {
	cfg      config.Config
	decimals map[string]int
	denoms   map[string][]string

	balances models.Balances
	history  map[string][]models.BalancePoint
	status   map[string]SourceStatus

	subscribers []Subscriber
	mu          sync.RWMutex
	stopOnce    sync.Once
	stopChan    chan struct{}
	dataSource  DataSource
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(cfg config.Config) *Watcher {
	decimals := make(map[string]int)
	denoms := make(map[string][]string)
	for _, src := range cfg.Sources {
		for _, a := range src.Assets {
			decimals[a.Denom] = a.Decimals
			denoms[src.Name] = append(denoms[src.Name], a.Denom)
		}
	}

	return &Watcher{
		cfg:        cfg,
		decimals:   decimals,
		denoms:     denoms,
		balances:   make(models.Balances),
		history:    make(map[string][]models.BalancePoint),
		status:     make(map[string]SourceStatus),
		stopChan:   make(chan struct{}),
		dataSource: &RealDataSource{},
	}
}

// SetDataSource allows overriding the data source (useful for testing).
func (w *Watcher) SetDataSource(ds DataSource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataSource = ds
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			log.Debug().Str("event", string(event.Type)).Msg("subscriber full, dropping event")
		}
	}
}

// Start begins the monitoring loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.pollingLoop(ctx)
}

// Stop stops the monitoring loop. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	w.fetchAll(ctx)

	interval := time.Duration(w.cfg.Global.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.fetchAll(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Refresh fetches every source immediately and blocks until done.
func (w *Watcher) Refresh(ctx context.Context) {
	w.fetchAll(ctx)
}

func (w *Watcher) fetchAll(ctx context.Context) {
	w.mu.RLock()
	ds := w.dataSource
	w.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, src := range w.cfg.Sources {
		g.Go(func() error {
			data, err := ds.FetchBalances(gctx, src, w.cfg.OwnerFor(src.Kind))
			if data.Source == "" {
				data.Source = src.Name
			}
			if err != nil {
				data.Err = err
				w.recordStatus(data)
				log.Warn().Err(err).Str("source", src.Name).Msg("balance fetch failed")
				w.notify(Event{Type: EventFetchFailed, Data: data})
				// one failing source must not cancel the others
				return nil
			}
			w.apply(data)
			w.notify(Event{Type: EventBalancesUpdated, Data: data})
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Watcher) recordStatus(data models.BalanceData) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status[data.Source] = SourceStatus{
		Name:       data.Source,
		FailedRPCs: data.FailedRPCs,
		Err:        data.Err,
		UpdatedAt:  time.Now(),
	}
}

// apply merges a successful fetch. Configured denoms the source no longer
// reports are dropped, since Cosmos omits zero balances. Unresolved denoms
// keep their last known amount.
func (w *Watcher) apply(data models.BalanceData) {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for denom, bal := range data.Balances {
		w.balances[denom] = bal
		a := models.Asset{Denom: denom, Decimals: w.decimals[denom]}
		v, _ := assets.NumericBalance(a, w.balances).Float64()
		w.record(denom, v, now)
	}

	unresolved := make(map[string]bool, len(data.Unresolved))
	for _, d := range data.Unresolved {
		unresolved[d] = true
	}
	for _, denom := range w.denoms[data.Source] {
		if _, ok := data.Balances[denom]; ok || unresolved[denom] {
			continue
		}
		if _, ok := w.balances[denom]; ok {
			delete(w.balances, denom)
			w.record(denom, 0, now)
		}
	}

	w.status[data.Source] = SourceStatus{
		Name:       data.Source,
		FailedRPCs: data.FailedRPCs,
		Err:        data.Err,
		UpdatedAt:  now,
	}
}

func (w *Watcher) record(denom string, v float64, at time.Time) {
	h := append(w.history[denom], models.BalancePoint{Timestamp: at, Value: v})
	if len(h) > MaxHistoryPoints {
		h = h[len(h)-MaxHistoryPoints:]
	}
	w.history[denom] = h
}

// Balances returns a copy of the merged balance snapshot.
func (w *Watcher) Balances() models.Balances {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balances.Clone()
}

// History returns a copy of the recorded values for denom, oldest first.
func (w *Watcher) History(denom string) []models.BalancePoint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h := w.history[denom]
	cp := make([]models.BalancePoint, len(h))
	copy(cp, h)
	return cp
}

// Status returns the latest fetch outcome per source name.
func (w *Watcher) Status() map[string]SourceStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cp := make(map[string]SourceStatus, len(w.status))
	for k, v := range w.status {
		cp[k] = v
	}
	return cp
}

// Config returns the configuration the watcher was built with.
func (w *Watcher) Config() config.Config {
	return w.cfg
}
