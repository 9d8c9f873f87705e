package assets

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

var filterQueries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "towerterm",
	Subsystem: "assets",
	Name:      "filter_queries_total",
	Help:      "Number of asset search recomputations.",
})

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "assets").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "assets").Logger()
}
