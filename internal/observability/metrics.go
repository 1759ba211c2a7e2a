// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the sniper. Register once per
// process; instruments are registered on the default registry.
type Metrics struct {
	// Discovery metrics
	PoolsDiscovered  prometheus.Counter
	PoolEventsFailed prometheus.Counter

	// Position metrics
	PositionsOpened    prometheus.Counter
	PositionsClosed    *prometheus.CounterVec
	PositionsAbandoned *prometheus.CounterVec
	PositionsTracking  prometheus.Gauge
	RealizedPnLPct     prometheus.Histogram

	// Trade metrics
	BuysSubmitted  prometheus.Counter
	BuysConfirmed  prometheus.Counter
	SellsSubmitted prometheus.Counter
	SellsConfirmed prometheus.Counter

	// RPC metrics
	EndpointRotations prometheus.Counter
	RPCCallLatency    *prometheus.HistogramVec

	// Risk metrics
	RiskChecksTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sniper"
	}

	return &Metrics{
		PoolsDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_discovered_total",
			Help:      "Total number of new pools discovered",
		}),
		PoolEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pool_events_failed_total",
			Help:      "Total number of pool events that could not be resolved",
		}),

		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "opened_total",
			Help:      "Total number of positions opened (buy confirmed)",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "closed_total",
			Help:      "Total number of positions closed by exit reason",
		}, []string{"reason"}),
		PositionsAbandoned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "abandoned_total",
			Help:      "Total number of positions abandoned by reason",
		}, []string{"reason"}),
		PositionsTracking: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "tracking",
			Help:      "Number of positions currently being tracked",
		}),
		RealizedPnLPct: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "position",
			Name:      "realized_pnl_pct",
			Help:      "Realized PnL percentage of closed positions",
			Buckets:   []float64{-100, -50, -10, 0, 25, 70, 150, 300, 1000},
		}),

		BuysSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "buys_submitted_total",
			Help:      "Total number of buy transactions submitted",
		}),
		BuysConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "buys_confirmed_total",
			Help:      "Total number of buy transactions confirmed",
		}),
		SellsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "sells_submitted_total",
			Help:      "Total number of sell transactions submitted",
		}),
		SellsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "sells_confirmed_total",
			Help:      "Total number of sell transactions confirmed",
		}),

		EndpointRotations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "endpoint_rotations_total",
			Help:      "Total number of RPC endpoint rotations",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		RiskChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "checks_total",
			Help:      "Total number of risk checks by verdict",
		}, []string{"verdict"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
