package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/correlation"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

func testRiskManager() *risk.Manager {
	return risk.New(risk.Config{MaxConcurrentArbs: 100, DailyLossLimit: decimal.NewFromFloat(1000),
		MaxExposurePerMarket: decimal.NewFromFloat(100000), MaxExposurePerEvent: decimal.NewFromFloat(100000),
		InventoryDriftThreshold: decimal.NewFromFloat(100000), MinLiquidity: decimal.Zero, PositionTimeoutSeconds: 86400})
}

func testDetector() *arbitrage.Detector {
	cfg := arbitrage.Config{MinEdge: decimal.NewFromFloat(0.01), MinLiquidity: decimal.NewFromFloat(10),
		MaxArbSize: decimal.NewFromFloat(500), FeeRate: decimal.NewFromFloat(0.02)}
	return arbitrage.NewDetector(cfg, testRiskManager())
}

func threeOutcomeMarket(id string, n int) types.Market {
	tokens := make([]types.Token, n)
	for i := range tokens {
		tokens[i] = types.Token{TokenID: id + "-tok" + string(rune('a'+i))}
	}
	return types.Market{ID: id, Tokens: tokens}
}

func TestScanMultiOutcomeSkipsMarketsBelowMinOutcomes(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	store.ApplySnapshot("m1", "m1-toka", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.47), Size: decimal.NewFromFloat(200)}}, 1, "")
	store.ApplySnapshot("m1", "m1-tokb", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.48), Size: decimal.NewFromFloat(200)}}, 1, "")

	s := New(Config{Detector: testDetector(), Store: store})
	opps, stats := s.Scan([]types.Market{threeOutcomeMarket("m1", 2)})

	if stats.MarketsScanned != 1 {
		t.Fatalf("expected 1 market scanned, got %d", stats.MarketsScanned)
	}
	if len(opps) != 0 {
		t.Fatalf("expected a 2-outcome market to be skipped by the default min-outcomes gate, got %d opportunities", len(opps))
	}
}

func TestScanMultiOutcomeFindsSumBelowOne(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	store.ApplySnapshot("m1", "m1-toka", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.30), Size: decimal.NewFromFloat(2000)}}, 1, "")
	store.ApplySnapshot("m1", "m1-tokb", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.30), Size: decimal.NewFromFloat(2000)}}, 1, "")
	store.ApplySnapshot("m1", "m1-tokc", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.30), Size: decimal.NewFromFloat(2000)}}, 1, "")

	s := New(Config{Detector: testDetector(), Store: store})
	opps, stats := s.Scan([]types.Market{threeOutcomeMarket("m1", 3)})

	if len(opps) != 1 {
		t.Fatalf("expected one multi-outcome arbitrage opportunity, got %d (stats=%+v)", len(opps), stats)
	}
	if opps[0].Kind != arbitrage.KindMultiOutcome {
		t.Fatalf("expected KindMultiOutcome, got %s", opps[0].Kind)
	}
}

func TestScanCrossMarketSkippedWithoutGraph(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	s := New(Config{Detector: testDetector(), Store: store})
	opps, stats := s.Scan(nil)
	if len(opps) != 0 || stats.EdgesScanned != 0 {
		t.Fatalf("expected no cross-market work without a graph, got %+v", stats)
	}
}

func TestScanCrossMarketIteratesGraphEdges(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	store.ApplySnapshot("parent", "yes", []orderbook.Level{{Price: decimal.NewFromFloat(0.10), Size: decimal.NewFromFloat(200)}}, []orderbook.Level{{Price: decimal.NewFromFloat(0.12), Size: decimal.NewFromFloat(200)}}, 1, "")
	store.ApplySnapshot("parent", "no", []orderbook.Level{{Price: decimal.NewFromFloat(0.88), Size: decimal.NewFromFloat(200)}}, []orderbook.Level{{Price: decimal.NewFromFloat(0.90), Size: decimal.NewFromFloat(200)}}, 1, "")
	store.ApplySnapshot("child", "yes", []orderbook.Level{{Price: decimal.NewFromFloat(0.70), Size: decimal.NewFromFloat(200)}}, []orderbook.Level{{Price: decimal.NewFromFloat(0.72), Size: decimal.NewFromFloat(200)}}, 1, "")
	store.ApplySnapshot("child", "no", []orderbook.Level{{Price: decimal.NewFromFloat(0.28), Size: decimal.NewFromFloat(200)}}, []orderbook.Level{{Price: decimal.NewFromFloat(0.30), Size: decimal.NewFromFloat(200)}}, 1, "")

	graph := correlation.Build([]types.Market{
		{ID: "parent", EventID: "fed-2026", Question: "Will the Fed cut rates in 2026?"},
		{ID: "child", EventID: "fed-2026", Question: "Will the Fed cut rates in Q1 2026?"},
	})

	s := New(Config{Detector: testDetector(), Store: store, Graph: graph})
	_, stats := s.Scan(nil)

	if stats.EdgesScanned != len(graph.Edges()) {
		t.Fatalf("expected every graph edge to be scanned, got %d of %d", stats.EdgesScanned, len(graph.Edges()))
	}
}

func TestLastStatsReflectsMostRecentScan(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	s := New(Config{Detector: testDetector(), Store: store})
	s.Scan([]types.Market{threeOutcomeMarket("m1", 3)})

	stats := s.LastStats()
	if stats.MarketsScanned != 1 {
		t.Fatalf("expected LastStats to reflect the prior scan, got %+v", stats)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	s := New(Config{Detector: testDetector(), Store: store, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func() []types.Market { return nil })
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
