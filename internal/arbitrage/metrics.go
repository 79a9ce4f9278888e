package arbitrage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is instance-scoped rather than a package-level promauto global
// (the shape the teacher's original detector.go used), matching
// internal/orderbook and internal/risk: multiple Detectors in one process
// (tests, or a live+sim pair) would otherwise panic on duplicate
// registration against the default registry.
type metrics struct {
	opportunitiesDetected prometheus.Counter
	rejectedNoEdge        prometheus.Counter
	rejectedLowLiquidity  prometheus.Counter
	rejectedNoProfit      prometheus.Counter
	rejectedEdgeTooSmall  prometheus.Counter
	rejectedBlacklisted   prometheus.Counter
	rejectedLowQuality    prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		opportunitiesDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities detected",
		}),
		rejectedNoEdge: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_no_edge_total",
			Help: "Opportunities rejected because sum of asks was not below 1",
		}),
		rejectedLowLiquidity: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_low_liquidity_total",
			Help: "Opportunities rejected for position size below min_liquidity",
		}),
		rejectedNoProfit: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_no_profit_total",
			Help: "Opportunities rejected for non-positive net profit",
		}),
		rejectedEdgeTooSmall: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_edge_too_small_total",
			Help: "Opportunities rejected for edge below min_edge",
		}),
		rejectedBlacklisted: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_blacklisted_total",
			Help: "Opportunities rejected because the market is blacklisted",
		}),
		rejectedLowQuality: f.NewCounter(prometheus.CounterOpts{
			Name: "arb_rejected_low_quality_total",
			Help: "Opportunities dropped by the quality-scoring admission heuristic",
		}),
	}
}
