package liquidity

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

var submitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "towerterm",
	Subsystem: "liquidity",
	Name:      "submits_total",
	Help:      "Deposit submissions by result.",
}, []string{"result"})

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "liquidity").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "liquidity").Logger()
}
