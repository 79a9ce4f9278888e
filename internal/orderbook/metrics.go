package orderbook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics groups the per-Store prometheus collectors. Kept as fields on an
// instance (rather than package-level globals, as the teacher's original
// orderbook manager used) so multiple Stores — one per test — can each
// register their own collectors without a duplicate-registration panic.
type metrics struct {
	snapshotsApplied    prometheus.Counter
	deltasApplied       prometheus.Counter
	staleUpdatesDropped prometheus.Counter
	updatesDropped      prometheus.Counter
	marketsEvicted      prometheus.Counter
}

func newMetrics() *metrics {
	factory := promauto.With(prometheus.NewRegistry())
	return &metrics{
		snapshotsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_snapshots_applied_total",
			Help: "Total number of book snapshots applied.",
		}),
		deltasApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_deltas_applied_total",
			Help: "Total number of book deltas applied.",
		}),
		staleUpdatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_stale_updates_dropped_total",
			Help: "Total number of updates dropped by the monotonicity guard.",
		}),
		updatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_updates_rate_limited_total",
			Help: "Total number of updates dropped by the ingest rate limiter.",
		}),
		marketsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "orderbook_markets_evicted_total",
			Help: "Total number of markets evicted for staleness.",
		}),
	}
}
