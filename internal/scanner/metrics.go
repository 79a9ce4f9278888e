package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics is instance-scoped, same reasoning as every other package's
// metrics in this module: a process can run more than one scanner (e.g.
// one per test) without a duplicate-registration panic.
type metrics struct {
	marketsScanned     prometheus.Counter
	opportunitiesFound prometheus.Counter
	scanSeconds        prometheus.Histogram
}

func newMetrics() *metrics {
	f := promauto.With(prometheus.NewRegistry())
	return &metrics{
		marketsScanned: f.NewCounter(prometheus.CounterOpts{
			Name: "scanner_markets_scanned_total",
			Help: "Markets examined across every completed scan",
		}),
		opportunitiesFound: f.NewCounter(prometheus.CounterOpts{
			Name: "scanner_opportunities_found_total",
			Help: "Opportunities surfaced by either scan that passed the quality gate",
		}),
		scanSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_duration_seconds",
			Help:    "Wall-clock duration of one multi-outcome + cross-market scan pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
