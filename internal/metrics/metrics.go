package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "cycles_total",
		Help:      "Completed trading cycles.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "stockpilot",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one trading cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	Equity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockpilot",
		Name:      "equity_vnd",
		Help:      "Current portfolio equity in VND.",
	})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockpilot",
		Name:      "open_positions",
		Help:      "Number of open positions.",
	})

	BreakerTripped = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockpilot",
		Name:      "breaker_tripped",
		Help:      "1 when the risk circuit breaker is tripped.",
	})

	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "trades_total",
		Help:      "Executed trades by side.",
	}, []string{"side"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockpilot",
		Name:      "fetch_failures_total",
		Help:      "Market data fetch failures by symbol.",
	}, []string{"symbol"})
)
