package volumefarmer

import (
	"testing"

	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

func testConfig() Config {
	return Config{
		MaxPrice:          decimal.NewFromFloat(0.05),
		MinVolumePerTrade: decimal.NewFromFloat(10),
		DailyBudget:       decimal.NewFromFloat(50),
		InitialBalance:    decimal.NewFromFloat(1000),
	}
}

func oneTokenMarket(marketID, tokenID, outcome string) types.Market {
	return types.Market{ID: marketID, Tokens: []types.Token{{TokenID: tokenID, Outcome: outcome}}}
}

// TestVolumeMultiplierAtOneCent mirrors the original's own embedded test:
// at $0.01, $1 buys 100 contracts worth $100 of notional volume.
func TestVolumeMultiplierAtOneCent(t *testing.T) {
	price := decimal.NewFromFloat(0.01)
	cost := decimal.NewFromFloat(1)
	multiplier := decimal.One.Div(price)
	notional := cost.Mul(multiplier)

	if !multiplier.Equal(decimal.NewFromFloat(100)) {
		t.Fatalf("multiplier = %s, want 100", multiplier)
	}
	if !notional.Equal(decimal.NewFromFloat(100)) {
		t.Fatalf("notional = %s, want 100", notional)
	}
}

func TestFindOpportunitiesExcludesAsksAboveMaxPrice(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	store.ApplySnapshot("m1", "yes", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.10), Size: decimal.NewFromFloat(1000)}}, 1, "")

	vf := New(testConfig())
	opps := vf.FindOpportunities(store, []types.Market{oneTokenMarket("m1", "yes", "Yes")})
	if len(opps) != 0 {
		t.Fatalf("expected asks above vf_max_price to be excluded, got %+v", opps)
	}
}

func TestFindOpportunitiesRequiresDepthForMinVolume(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	// At $0.01 with a $10 min-volume target, the clip needs 10 contracts of
	// depth; only 1 is offered here.
	store.ApplySnapshot("m1", "yes", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.01), Size: decimal.NewFromFloat(1)}}, 1, "")

	vf := New(testConfig())
	opps := vf.FindOpportunities(store, []types.Market{oneTokenMarket("m1", "yes", "Yes")})
	if len(opps) != 0 {
		t.Fatalf("expected shallow book to be excluded for lacking min-volume depth, got %+v", opps)
	}
}

func TestFindOpportunitiesSortsByMultiplierDescending(t *testing.T) {
	store := orderbook.New(orderbook.Config{})
	store.ApplySnapshot("m1", "yes", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.05), Size: decimal.NewFromFloat(1000)}}, 1, "")
	store.ApplySnapshot("m2", "no", nil, []orderbook.Level{{Price: decimal.NewFromFloat(0.01), Size: decimal.NewFromFloat(1000)}}, 1, "")

	vf := New(testConfig())
	opps := vf.FindOpportunities(store, []types.Market{oneTokenMarket("m1", "yes", "Yes"), oneTokenMarket("m2", "no", "No")})
	if len(opps) != 2 {
		t.Fatalf("expected both opportunities, got %d", len(opps))
	}
	if opps[0].MarketID != "m2" {
		t.Fatalf("expected the $0.01 contract (100x) ranked first, got %+v", opps[0])
	}
}

func TestExecuteClipsToRemainingBudget(t *testing.T) {
	vf := New(Config{MaxPrice: decimal.NewFromFloat(0.05), MinVolumePerTrade: decimal.NewFromFloat(100), DailyBudget: decimal.NewFromFloat(1), InitialBalance: decimal.NewFromFloat(1000)})
	op := Opportunity{MarketID: "m1", AssetID: "yes", Price: decimal.NewFromFloat(0.01), CostForMinVolume: decimal.NewFromFloat(1), VolumeMultiplier: decimal.NewFromFloat(100)}

	trade, ok := vf.Execute(op)
	if !ok {
		t.Fatalf("expected trade to execute within budget")
	}
	if !trade.Cost.Equal(decimal.NewFromFloat(1)) {
		t.Fatalf("cost = %s, want 1 (full daily budget)", trade.Cost)
	}

	_, ok = vf.Execute(op)
	if ok {
		t.Fatalf("expected second trade to be rejected, daily budget already exhausted")
	}
}

func TestExecuteRejectsInsufficientBalance(t *testing.T) {
	vf := New(Config{MaxPrice: decimal.NewFromFloat(0.05), MinVolumePerTrade: decimal.NewFromFloat(100), DailyBudget: decimal.NewFromFloat(1000), InitialBalance: decimal.NewFromFloat(5)})
	op := Opportunity{MarketID: "m1", AssetID: "yes", Price: decimal.NewFromFloat(0.01), CostForMinVolume: decimal.NewFromFloat(10), VolumeMultiplier: decimal.NewFromFloat(100)}

	_, ok := vf.Execute(op)
	if ok {
		t.Fatalf("expected trade to be rejected for insufficient balance")
	}
}

func TestResetDailyBudgetRestoresSpendingRoom(t *testing.T) {
	vf := New(Config{MaxPrice: decimal.NewFromFloat(0.05), MinVolumePerTrade: decimal.NewFromFloat(100), DailyBudget: decimal.NewFromFloat(1), InitialBalance: decimal.NewFromFloat(1000)})
	op := Opportunity{MarketID: "m1", AssetID: "yes", Price: decimal.NewFromFloat(0.01), CostForMinVolume: decimal.NewFromFloat(1), VolumeMultiplier: decimal.NewFromFloat(100)}

	vf.Execute(op)
	if _, ok := vf.Execute(op); ok {
		t.Fatalf("expected budget exhausted before reset")
	}

	vf.ResetDailyBudget()
	if _, ok := vf.Execute(op); !ok {
		t.Fatalf("expected trade to execute again after daily reset")
	}
}

func TestPnLTracksBalanceDrift(t *testing.T) {
	vf := New(testConfig())
	op := Opportunity{MarketID: "m1", AssetID: "yes", Price: decimal.NewFromFloat(0.01), CostForMinVolume: decimal.NewFromFloat(5), VolumeMultiplier: decimal.NewFromFloat(100)}
	vf.Execute(op)

	if !vf.PnL().Equal(decimal.NewFromFloat(-5)) {
		t.Fatalf("PnL = %s, want -5", vf.PnL())
	}
}
