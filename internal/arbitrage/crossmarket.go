package arbitrage

import (
	"time"

	"github.com/mselser95/predmarket-arb/internal/correlation"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/latency"
)

var (
	lowBound  = decimal.NewFromFloat(0.01)
	highBound = decimal.NewFromFloat(0.99)
)

// outOfBand reports whether a top-of-book price is outside [0.01, 0.99],
// treated as resolved or illiquid (§4.5).
func outOfBand(p decimal.D) bool {
	return p.Cmp(lowBound) < 0 || p.Cmp(highBound) > 0
}

// DetectCrossMarket implements §4.5 for a single correlation edge,
// dispatching on edge.Kind. Only Parent (LogicalImplication) and Opposite
// (MutualExclusion) are monetised; other kinds return nil, matching "not
// monetised in this revision".
func (d *Detector) DetectCrossMarket(store *orderbook.Store, edge correlation.Edge, now time.Time) *Opportunity {
	defer latency.Scoped(d.latency)()

	booksA, okA := store.MarketBooks(edge.MarketA)
	booksB, okB := store.MarketBooks(edge.MarketB)
	if !okA || !okB || !booksA.IsBinary() || !booksB.IsBinary() {
		return nil
	}

	askAYes, bidAYes, okAYes := yesTopOfBook(booksA)
	askBYes, bidBYes, okBYes := yesTopOfBook(booksB)
	if !okAYes || !okBYes {
		return nil
	}
	if outOfBand(askAYes) || outOfBand(bidAYes) || outOfBand(askBYes) || outOfBand(bidBYes) {
		return nil
	}

	switch edge.Kind {
	case correlation.KindParent:
		return d.detectLogicalImplication(edge, askAYes, bidBYes, now)
	case correlation.KindOpposite:
		return d.detectMutualExclusion(edge, askAYes, askBYes, now)
	default:
		return nil
	}
}

func yesTopOfBook(mb orderbook.MarketBooksView) (ask, bid decimal.D, ok bool) {
	for _, b := range mb.Books {
		if b.AssetID != mb.YesAssetID {
			continue
		}
		a, hasAsk := b.BestAsk()
		bd, hasBid := b.BestBid()
		if !hasAsk || !hasBid {
			return decimal.Zero, decimal.Zero, false
		}
		return a.Price, bd.Price, true
	}
	return decimal.Zero, decimal.Zero, false
}

// detectLogicalImplication: parent A implies child B, so cost = ask_a_yes +
// (1 - bid_b_yes); emit only when cost < 0.98 and profit exceeds $0.50.
func (d *Detector) detectLogicalImplication(edge correlation.Edge, askAYes, bidBYes decimal.D, now time.Time) *Opportunity {
	cost := askAYes.Add(decimal.One.Sub(bidBYes))
	if cost.Cmp(d.cfg.CrossMarketMaxCost) >= 0 {
		return nil
	}
	return d.buildCrossOpportunity(edge, cost, CrossLogicalImplication, 0.8, now)
}

// detectMutualExclusion: P(A) + P(B) <= 1, cost = ask_a_yes + ask_b_yes.
func (d *Detector) detectMutualExclusion(edge correlation.Edge, askAYes, askBYes decimal.D, now time.Time) *Opportunity {
	cost := askAYes.Add(askBYes)
	if cost.Cmp(d.cfg.CrossMarketMaxCost) >= 0 {
		return nil
	}
	return d.buildCrossOpportunity(edge, cost, CrossMutualExclusion, 0.9, now)
}

func (d *Detector) buildCrossOpportunity(edge correlation.Edge, cost decimal.D, crossKind CrossKind, confidence float64, now time.Time) *Opportunity {
	arbEdge := decimal.One.Sub(cost)
	position := d.cfg.MaxArbSize
	profit := position.Mul(arbEdge).Sub(position.Mul(d.cfg.FeeRate))
	if profit.Cmp(d.cfg.CrossMarketMinProfit) <= 0 {
		return nil
	}

	return &Opportunity{
		MarketID:     edge.MarketA,
		MarketBID:    edge.MarketB,
		Kind:         KindCrossMarket,
		CrossKind:    crossKind,
		Confidence:   confidence,
		TotalEdge:    arbEdge,
		PositionSize: position,
		NetProfit:    profit,
		FeeCost:      position.Mul(d.cfg.FeeRate),
		MinLiquidity: position,
		TimestampMs:  now.UnixMilli(),
	}
}
