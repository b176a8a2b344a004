package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Trade metrics
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_engine_trades_total",
			Help: "Total number of trades by venue and terminal outcome",
		},
		[]string{"venue", "outcome"},
	)

	TradePhase = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_engine_trade_phases_total",
			Help: "Total number of trade phase transitions",
		},
		[]string{"phase"},
	)

	TradeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_engine_trade_duration_seconds",
			Help:    "End-to-end trade duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 90},
		},
		[]string{"venue"},
	)

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_engine_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"venue", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_engine_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue"},
	)

	Reroutes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trade_engine_reroutes_total",
		Help: "Total number of mid-trade venue re-routes",
	})

	// Simulation metrics
	SimulationRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trade_engine_simulation_requests_total",
		Help: "Total number of transaction simulations",
	})

	SimulationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_engine_simulation_failures_total",
			Help: "Total number of failed transaction simulations",
		},
		[]string{"reason"},
	)

	ComputeUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trade_engine_compute_units",
		Help:    "Compute units consumed by simulated transactions",
		Buckets: []float64{5000, 10000, 50000, 100000, 200000, 400000, 800000, 1400000},
	})

	// Fee metrics
	PriorityFee = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_engine_priority_fee_microlamports",
			Help:    "Priority fee per compute unit in microlamports",
			Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 1000000},
		},
		[]string{"tier"},
	)

	// Confirmation metrics
	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trade_engine_confirmation_duration_seconds",
		Help:    "Time from submission to finalization in seconds",
		Buckets: []float64{1, 2, 5, 10, 15, 30, 45, 60},
	})

	ConfirmationTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trade_engine_confirmation_timeouts_total",
		Help: "Total number of confirmation polls that timed out",
	})

	// Token registry metrics
	TokensResolved = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trade_engine_tokens_resolved",
		Help: "Number of token mints resolved in memory",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trade_engine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
