//go:build integration
// +build integration

package app

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

// TestIntegration_MultiOutcomeArbitrage detects a Sum-<1 opportunity across
// a five-outcome market, the case the periodic scanner (not the binary/
// short-window loop) covers in the running engine.
func TestIntegration_MultiOutcomeArbitrage(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := orderbook.New(orderbook.Config{Logger: logger})

	marketID := "multi-outcome-market"
	now := time.Now()

	// Five outcomes, each ask priced at 0.18: sum = 0.90, well under 1.
	for i := 0; i < 5; i++ {
		assetID := fmt.Sprintf("outcome-%d", i)
		store.ApplySnapshot(marketID, assetID,
			[]orderbook.Level{{Price: decimal.NewFromFloat(0.17), Size: decimal.NewFromFloat(50)}},
			[]orderbook.Level{{Price: decimal.NewFromFloat(0.18), Size: decimal.NewFromFloat(50)}},
			now.UnixMilli(), fmt.Sprintf("hash-%d", i))
	}

	riskMgr := risk.New(risk.Config{MaxConcurrentArbs: 10, Logger: logger})
	cfg := arbitrage.DefaultConfig()
	cfg.MinEdge = decimal.NewFromFloat(0.01)
	detector := arbitrage.NewDetector(cfg, riskMgr)

	op := detector.DetectSingleMarket(store, marketID, "multi-outcome-event", decimal.Zero, now)
	if op == nil {
		t.Fatal("expected a multi-outcome arbitrage opportunity")
	}
	if op.Kind != arbitrage.KindMultiOutcome {
		t.Fatalf("expected KindMultiOutcome, got %s", op.Kind)
	}
	if len(op.Edges) != 5 {
		t.Fatalf("expected 5 edges (one per outcome), got %d", len(op.Edges))
	}

	sizes := make(map[string]decimal.D)
	for _, e := range op.Edges {
		sizes[e.AssetID] = e.Size
	}
	first := sizes[op.Edges[0].AssetID]
	for _, e := range op.Edges {
		if e.Size.Cmp(first) != 0 {
			t.Fatalf("expected equal per-outcome size across all edges, got %s vs %s", e.Size.String(), first.String())
		}
	}
}

// TestIntegration_MultiOutcomeNoEdge verifies a four-outcome market priced
// at or above 1 produces no opportunity.
func TestIntegration_MultiOutcomeNoEdge(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := orderbook.New(orderbook.Config{Logger: logger})

	marketID := "fair-multi-outcome-market"
	now := time.Now()

	for i := 0; i < 4; i++ {
		assetID := fmt.Sprintf("outcome-%d", i)
		store.ApplySnapshot(marketID, assetID,
			[]orderbook.Level{{Price: decimal.NewFromFloat(0.24), Size: decimal.NewFromFloat(50)}},
			[]orderbook.Level{{Price: decimal.NewFromFloat(0.26), Size: decimal.NewFromFloat(50)}},
			now.UnixMilli(), fmt.Sprintf("hash-%d", i))
	}

	riskMgr := risk.New(risk.Config{MaxConcurrentArbs: 10, Logger: logger})
	detector := arbitrage.NewDetector(arbitrage.DefaultConfig(), riskMgr)

	op := detector.DetectSingleMarket(store, marketID, "fair-event", decimal.Zero, now)
	if op != nil {
		t.Fatalf("expected no opportunity for a 1.04 ask sum, got one: %+v", op)
	}
}
