// Package arbitrage implements the four-detector arbitrage engine (§4.2,
// §4.3, §4.5) and the quality-scoring admission heuristic (§4.6). It keeps
// the teacher's detector.go idiom of pure functions over an orderbook
// snapshot, generalized from the teacher's binary-only, best-of-book
// design to the full single-market/multi-outcome/short-window/cross-market
// set, with the exact sizing formulas ported from the original engine's
// src/arb_engine/mod.rs.
package arbitrage

import (
	"strconv"

	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

// ArbKind is the closed sum of opportunity classes (§9: tagged variants
// over inheritance).
type ArbKind int

const (
	KindBinary ArbKind = iota
	KindMultiOutcome
	KindShortWindow
	KindCrossMarket
)

func (k ArbKind) String() string {
	switch k {
	case KindBinary:
		return "Binary"
	case KindMultiOutcome:
		return "MultiOutcome"
	case KindShortWindow:
		return "ShortWindow"
	case KindCrossMarket:
		return "CrossMarket"
	default:
		return "Unknown"
	}
}

// CrossKind is the closed sum of cross-market relationship classes (§3).
// Only LogicalImplication and MutualExclusion are monetised (§4.5); the
// other two are carried for completeness and future detectors.
type CrossKind int

const (
	CrossLogicalImplication CrossKind = iota
	CrossMutualExclusion
	CrossConditionalPricing
	CrossTemporalDependency
)

func (k CrossKind) String() string {
	switch k {
	case CrossLogicalImplication:
		return "LogicalImplication"
	case CrossMutualExclusion:
		return "MutualExclusion"
	case CrossConditionalPricing:
		return "ConditionalPricing"
	case CrossTemporalDependency:
		return "TemporalDependency"
	default:
		return "Unknown"
	}
}

// Edge is one leg of an opportunity: an asset to buy at a price/size, with
// its expected cost (price * size).
type Edge struct {
	AssetID      string
	Outcome      string
	Price        decimal.D
	Size         decimal.D
	ExpectedCost decimal.D
}

// Opportunity is the unified arbitrage-opportunity shape from §3's data
// model, with the short-window and cross-market extension fields carried
// as zero-valued when not applicable to a given Kind.
type Opportunity struct {
	MarketID     string
	EventID      string
	Kind         ArbKind
	Edges        []Edge
	TotalEdge    decimal.D
	MinLiquidity decimal.D
	PositionSize decimal.D
	NetProfit    decimal.D
	FeeCost      decimal.D
	TimestampMs  int64

	// Short-window fields.
	MinutesToExpiry  float64
	YesAssetID       string
	NoAssetID        string
	AnnualizedReturn decimal.D

	// Cross-market fields.
	MarketBID  string
	CrossKind  CrossKind
	Confidence float64
}

// ToRiskOpportunity converts to the minimal shape the risk gate needs,
// resolving the Open Question about realized P&L by never forwarding a
// field the risk manager would mistake for an executor-confirmed payout:
// the caller still supplies ExecutionOutcome.RealizedPnl explicitly at
// RecordExecution time.
func (o Opportunity) ToRiskOpportunity() risk.Opportunity {
	edges := make([]risk.Edge, len(o.Edges))
	for i, e := range o.Edges {
		edges[i] = risk.Edge{
			AssetID:      e.AssetID,
			Outcome:      e.Outcome,
			Price:        e.Price,
			Size:         e.Size,
			ExpectedCost: e.ExpectedCost,
		}
	}
	return risk.Opportunity{
		MarketID:     o.MarketID,
		EventID:      o.EventID,
		Edges:        edges,
		PositionSize: o.PositionSize,
		NetProfit:    o.NetProfit,
		MinLiquidity: o.MinLiquidity,
	}
}

// outcomeLabel returns "Yes"/"No" for binary opportunities (tagged by the
// store) or "Outcome_i" for multi-outcome, per §4.2's closing paragraph.
func outcomeLabel(binary bool, assetID, yesAssetID string, index int) string {
	if binary {
		if assetID == yesAssetID {
			return "Yes"
		}
		return "No"
	}
	return "Outcome_" + strconv.Itoa(index)
}
