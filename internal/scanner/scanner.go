// Package scanner drives the periodic multi-outcome and cross-market scans
// (§4.10): partitioning markets across workers, running the arbitrage
// detector against each, and reporting throughput.
package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/correlation"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// Config configures a Scanner.
type Config struct {
	Detector        *arbitrage.Detector
	Store           *orderbook.Store
	Graph           *correlation.Graph
	Interval        time.Duration // default 5s per §4.10
	Workers         int           // default 4
	MinOutcomes     int           // default 3, markets below this are skipped by the multi-outcome scan
	Logger          *zap.Logger
	OnOpportunities func([]arbitrage.Opportunity)
}

// Stats is the throughput snapshot reported to the monitor after each scan.
type Stats struct {
	MarketsScanned int
	EdgesScanned   int
	Opportunities  int
	Elapsed        time.Duration
	MarketsPerSec  float64
	AvgMs          float64
}

// Scanner runs periodic multi-outcome + cross-market scans (§4.10). The two
// scans don't need to coordinate with each other: the store's per-market
// reads are internally consistent, so workers partitioning the market list
// never observe a torn book.
type Scanner struct {
	cfg Config

	mu        sync.Mutex
	lastStats Stats

	metrics *metrics
}

// New builds a Scanner from its config, filling in the §4.10 defaults for
// zero-valued fields.
func New(cfg Config) *Scanner {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MinOutcomes <= 0 {
		cfg.MinOutcomes = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Scanner{cfg: cfg, metrics: newMetrics()}
}

// Run blocks, ticking every Interval until ctx is cancelled. Each tick
// calls Scan once with the caller-supplied market list and forwards the
// result to OnOpportunities, if set.
func (s *Scanner) Run(ctx context.Context, markets func() []types.Market) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opps, stats := s.Scan(markets())
			s.cfg.Logger.Info("scan-complete",
				zap.Int("markets", stats.MarketsScanned),
				zap.Int("edges", stats.EdgesScanned),
				zap.Int("opportunities", stats.Opportunities),
				zap.Float64("markets-per-sec", stats.MarketsPerSec))
			if s.cfg.OnOpportunities != nil && len(opps) > 0 {
				s.cfg.OnOpportunities(opps)
			}
		}
	}
}

// Scan runs one multi-outcome scan over markets and one cross-market scan
// over every correlation edge, merging both into a single list sorted by
// descending expected_profit (§4.10: "Both produce opportunity lists
// sorted by descending expected_profit").
func (s *Scanner) Scan(markets []types.Market) ([]arbitrage.Opportunity, Stats) {
	start := time.Now()
	now := start

	multiOutcome := s.scanMultiOutcome(markets, now)
	crossMarket := s.scanCrossMarket(now)

	opps := append(multiOutcome, crossMarket...)
	sort.Slice(opps, func(i, j int) bool {
		return opps[i].NetProfit.Cmp(opps[j].NetProfit) > 0
	})

	elapsed := time.Since(start)
	s.mu.Lock()
	edgeCount := 0
	if s.cfg.Graph != nil {
		edgeCount = len(s.cfg.Graph.Edges())
	}
	s.mu.Unlock()

	stats := Stats{
		MarketsScanned: len(markets),
		EdgesScanned:   edgeCount,
		Opportunities:  len(opps),
		Elapsed:        elapsed,
	}
	if elapsed > 0 {
		stats.MarketsPerSec = float64(len(markets)) / elapsed.Seconds()
		stats.AvgMs = elapsed.Seconds() * 1000 / float64(max(1, len(markets)+edgeCount))
	}

	s.mu.Lock()
	s.lastStats = stats
	s.mu.Unlock()

	s.metrics.marketsScanned.Add(float64(len(markets)))
	s.metrics.opportunitiesFound.Add(float64(len(opps)))
	s.metrics.scanSeconds.Observe(elapsed.Seconds())

	return opps, stats
}

// scanMultiOutcome partitions markets with >= MinOutcomes outcomes across
// Workers goroutines; each worker owns a disjoint slice, so no locking is
// needed beyond collecting results (§4.10: "workers do not need to
// coordinate").
func (s *Scanner) scanMultiOutcome(markets []types.Market, now time.Time) []arbitrage.Opportunity {
	var eligible []types.Market
	for _, m := range markets {
		if len(m.Tokens) >= s.cfg.MinOutcomes {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	partitions := partition(eligible, s.cfg.Workers)
	results := make([][]arbitrage.Opportunity, len(partitions))

	var wg sync.WaitGroup
	for i, part := range partitions {
		wg.Add(1)
		go func(i int, part []types.Market) {
			defer wg.Done()
			var found []arbitrage.Opportunity
			for _, m := range part {
				op := s.cfg.Detector.DetectSingleMarket(s.cfg.Store, m.ID, m.EventID, decimal.Zero, now)
				if op == nil || !s.cfg.Detector.PassesQualityGate(*op) {
					continue
				}
				found = append(found, *op)
			}
			results[i] = found
		}(i, part)
	}
	wg.Wait()

	var merged []arbitrage.Opportunity
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// scanCrossMarket iterates every correlation edge (§4.5), also partitioned
// across Workers.
func (s *Scanner) scanCrossMarket(now time.Time) []arbitrage.Opportunity {
	s.mu.Lock()
	graph := s.cfg.Graph
	s.mu.Unlock()

	if graph == nil {
		return nil
	}
	edges := graph.Edges()
	if len(edges) == 0 {
		return nil
	}

	partitions := partitionEdges(edges, s.cfg.Workers)
	results := make([][]arbitrage.Opportunity, len(partitions))

	var wg sync.WaitGroup
	for i, part := range partitions {
		wg.Add(1)
		go func(i int, part []correlation.Edge) {
			defer wg.Done()
			var found []arbitrage.Opportunity
			for _, e := range part {
				op := s.cfg.Detector.DetectCrossMarket(s.cfg.Store, e, now)
				if op == nil || !s.cfg.Detector.PassesQualityGate(*op) {
					continue
				}
				found = append(found, *op)
			}
			results[i] = found
		}(i, part)
	}
	wg.Wait()

	var merged []arbitrage.Opportunity
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// LastStats returns the most recently computed throughput snapshot.
func (s *Scanner) LastStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStats
}

// SetGraph swaps the correlation graph used by the cross-market scan. Safe
// to call concurrently with Run's ticking goroutine, so a periodic graph
// rebuild never has to pause scanning.
func (s *Scanner) SetGraph(g *correlation.Graph) {
	s.mu.Lock()
	s.cfg.Graph = g
	s.mu.Unlock()
}

func partition(markets []types.Market, workers int) [][]types.Market {
	if workers > len(markets) {
		workers = len(markets)
	}
	if workers <= 0 {
		return nil
	}
	out := make([][]types.Market, workers)
	for i, m := range markets {
		out[i%workers] = append(out[i%workers], m)
	}
	return out
}

func partitionEdges(edges []correlation.Edge, workers int) [][]correlation.Edge {
	if workers > len(edges) {
		workers = len(edges)
	}
	if workers <= 0 {
		return nil
	}
	out := make([][]correlation.Edge, workers)
	for i, e := range edges {
		out[i%workers] = append(out[i%workers], e)
	}
	return out
}
