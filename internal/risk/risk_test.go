package risk

import (
	"testing"
	"time"

	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

func testConfig() Config {
	return Config{
		MaxConcurrentArbs:       5,
		DailyLossLimit:          decimal.NewFromFloat(100),
		MaxExposurePerMarket:    decimal.NewFromFloat(1000),
		MaxExposurePerEvent:     decimal.NewFromFloat(5000),
		InventoryDriftThreshold: decimal.NewFromFloat(500),
		MinLiquidity:            decimal.NewFromFloat(50),
		PositionTimeoutSeconds:  60,
		BlacklistedMarkets:      []string{"bad-market"},
	}
}

func sampleOpportunity() Opportunity {
	return Opportunity{
		MarketID: "m1",
		EventID:  "evt1",
		Edges: []Edge{
			{AssetID: "yes", Outcome: "Yes", Price: decimal.NewFromFloat(0.47), Size: decimal.NewFromFloat(100), ExpectedCost: decimal.NewFromFloat(47)},
			{AssetID: "no", Outcome: "No", Price: decimal.NewFromFloat(0.48), Size: decimal.NewFromFloat(100), ExpectedCost: decimal.NewFromFloat(48)},
		},
		PositionSize: decimal.NewFromFloat(100),
		NetProfit:    decimal.NewFromFloat(5),
		MinLiquidity: decimal.NewFromFloat(100),
	}
}

func TestCanExecuteAdmitsWithinLimits(t *testing.T) {
	m := New(testConfig())
	if !m.CanExecute(sampleOpportunity()) {
		t.Fatalf("expected opportunity within limits to be admitted")
	}
}

// TestCanExecuteIdempotence is Testable Property 4.
func TestCanExecuteIdempotence(t *testing.T) {
	m := New(testConfig())
	op := sampleOpportunity()

	first := m.CanExecute(op)
	second := m.CanExecute(op)
	if first != second {
		t.Fatalf("CanExecute must be idempotent without an intervening RecordExecution")
	}
}

func TestCanExecuteRejectsLowLiquidity(t *testing.T) {
	m := New(testConfig())
	op := sampleOpportunity()
	op.MinLiquidity = decimal.NewFromFloat(10)

	if m.CanExecute(op) {
		t.Fatalf("expected rejection for liquidity below min_liquidity")
	}
}

func TestCanExecuteRejectsExposureCap(t *testing.T) {
	m := New(testConfig())
	op := sampleOpportunity()
	op.PositionSize = decimal.NewFromFloat(2000)

	if m.CanExecute(op) {
		t.Fatalf("expected rejection above max_exposure_per_market")
	}
}

func TestCanExecuteRejectsAtConcurrencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentArbs = 1
	m := New(cfg)
	op := sampleOpportunity()

	m.RecordExecution(op, ExecutionOutcome{Filled: true, RealizedPnl: decimal.NewFromFloat(5)})
	if m.CanExecute(op) {
		t.Fatalf("expected rejection once active_arbs reaches max_concurrent_arbs")
	}
}

// TestExposureAccounting is Testable Property 5.
func TestExposureAccounting(t *testing.T) {
	m := New(testConfig())
	op := sampleOpportunity()

	m.RecordExecution(op, ExecutionOutcome{Filled: true, RealizedPnl: decimal.NewFromFloat(5)})
	if m.ActiveArbs() != 1 {
		t.Fatalf("ActiveArbs = %d, want 1", m.ActiveArbs())
	}
	if !m.ExposureForMarket("m1").Equal(decimal.NewFromFloat(100)) {
		t.Fatalf("exposure[m1] = %s, want 100", m.ExposureForMarket("m1"))
	}

	removed := m.Sweep(time.Now().Add(2 * time.Minute))
	if removed != 2 {
		t.Fatalf("expected both edges' positions swept, got %d", removed)
	}
	if m.ActiveArbs() != 0 {
		t.Fatalf("ActiveArbs after sweep = %d, want 0 (saturating)", m.ActiveArbs())
	}
	if !decimal.IsZero(m.ExposureForMarket("m1")) {
		t.Fatalf("exposure[m1] after sweep = %s, want 0", m.ExposureForMarket("m1"))
	}
}

// TestSweepSaturatesAtZero covers scenario S7's saturating decrement when
// sweep runs with no open positions.
func TestSweepSaturatesAtZero(t *testing.T) {
	m := New(testConfig())
	removed := m.Sweep(time.Now())
	if removed != 0 {
		t.Fatalf("expected no positions to sweep")
	}
	if m.ActiveArbs() != 0 {
		t.Fatalf("ActiveArbs must not go negative")
	}
}

func TestIsMarketBlacklistedSubstringMatch(t *testing.T) {
	m := New(testConfig())
	if !m.IsMarketBlacklisted("will-bad-market-resolve-yes") {
		t.Fatalf("expected substring match against blacklist entry")
	}
	if m.IsMarketBlacklisted("totally-fine-market") {
		t.Fatalf("expected no match for unrelated market")
	}
}

// TestDailyRollover is Testable Property 8.
func TestDailyRollover(t *testing.T) {
	m := New(testConfig())
	m.dailyPnL = DailyPnL{DateUTC: "2020-01-01", Realized: decimal.NewFromFloat(-99999)}

	// A fresh CanExecute call, evaluated against "now", must trigger
	// rollover before evaluating the daily-loss-limit condition.
	if !m.CanExecute(sampleOpportunity()) {
		t.Fatalf("expected daily rollover to reset stale loss before admission check")
	}
}

func TestShouldStopTrading(t *testing.T) {
	cfg := testConfig()
	m := New(cfg)
	m.dailyPnL.Realized = cfg.DailyLossLimit.Neg().Sub(decimal.One)

	if !m.ShouldStopTrading() {
		t.Fatalf("expected should_stop_trading once daily loss exceeds the limit")
	}
}
