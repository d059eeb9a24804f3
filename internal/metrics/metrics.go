package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hord",
		Name:      "blocks_ingested_total",
		Help:      "Total compacted blocks successfully persisted.",
	})

	SequentialCursorHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hord",
		Name:      "sequential_cursor_height",
		Help:      "Height the post-processor has augmented up to.",
	})

	AugmentationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hord",
		Name:      "augmentation_failures_total",
		Help:      "Total augmentation errors that terminated the post-processor.",
	})

	InscriptionsRevealed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hord",
		Name:      "inscriptions_revealed_total",
		Help:      "Total inscriptions inserted via reveal.",
	})

	InscriptionsTransferred = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hord",
		Name:      "inscriptions_transferred_total",
		Help:      "Total inscription transfer updates applied.",
	})

	RPCRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hord",
		Name:      "rpc_retries_total",
		Help:      "Bitcoin RPC retry attempts by operation.",
	}, []string{"op"})

	InFlightRawBlocks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hord",
		Name:      "inflight_raw_blocks",
		Help:      "Raw blocks buffered between fetch and compaction.",
	})
)

func init() {
	prometheus.MustRegister(
		BlocksIngested,
		SequentialCursorHeight,
		AugmentationFailures,
		InscriptionsRevealed,
		InscriptionsTransferred,
		RPCRetries,
		InFlightRawBlocks,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
