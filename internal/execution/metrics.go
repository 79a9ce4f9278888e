package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is instance-scoped (promauto.With a fresh registry) rather than
// package-global, so a process can run more than one executor — live and
// simulation side by side, or one per test — without a duplicate-
// registration panic (same reasoning as orderbook/risk/arbitrage's metrics).
type metrics struct {
	rejectedSlippage prometheus.Counter
	fullyFilled      prometheus.Counter
	partiallyFilled  prometheus.Counter
	unfilled         prometheus.Counter
	simRejectedFunds prometheus.Counter
	executionSeconds prometheus.Histogram
}

func newMetrics() *metrics {
	f := promauto.With(prometheus.NewRegistry())
	return &metrics{
		rejectedSlippage: f.NewCounter(prometheus.CounterOpts{
			Name: "execution_rejected_slippage_total",
			Help: "Opportunities aborted at the pre-submit slippage revalidation step",
		}),
		fullyFilled: f.NewCounter(prometheus.CounterOpts{
			Name: "execution_fully_filled_total",
			Help: "Opportunities where every edge confirmed filled",
		}),
		partiallyFilled: f.NewCounter(prometheus.CounterOpts{
			Name: "execution_partially_filled_total",
			Help: "Opportunities where some but not all edges filled",
		}),
		unfilled: f.NewCounter(prometheus.CounterOpts{
			Name: "execution_unfilled_total",
			Help: "Opportunities where no edge filled before cancel-all",
		}),
		simRejectedFunds: f.NewCounter(prometheus.CounterOpts{
			Name: "execution_simulation_rejected_insufficient_balance_total",
			Help: "Simulated trades rejected for insufficient hypothetical balance",
		}),
		executionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "execution_duration_seconds",
			Help:    "Wall-clock duration of one opportunity's execution path",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
