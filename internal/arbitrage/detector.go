package arbitrage

import (
	"time"

	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/latency"
)

// Detector runs the single-market, short-window, and cross-market
// detectors (§4.2, §4.3, §4.5) against a live orderbook.Store. It holds no
// state beyond config and latency instrumentation; detect_* calls are pure
// reads of the store plus the risk manager's blacklist, matching the
// original engine's ArbEngine (§7: "Detector: pure functions").
type Detector struct {
	cfg     Config
	risk    *risk.Manager
	metrics *metrics
	latency *latency.Tracker
}

// NewDetector builds a Detector bound to a risk manager (consulted only
// for IsMarketBlacklisted, §4.2 step 10) and config.
func NewDetector(cfg Config, riskMgr *risk.Manager) *Detector {
	return &Detector{cfg: cfg, risk: riskMgr, metrics: newMetrics(), latency: latency.New()}
}

// LatencySnapshot exposes the detector's own per-op timing, mirroring the
// original engine's get_latency_stats.
func (d *Detector) LatencySnapshot() latency.Snapshot {
	return d.latency.Snapshot()
}

// calculateMaxPosition is calculate_max_position ported exactly from
// src/arb_engine/mod.rs: edge_ratio above 1 scales up to 2x base_max,
// below 1 scales down proportionally.
func calculateMaxPosition(rawEdge, minEdge, baseMax decimal.D) decimal.D {
	if minEdge.IsZero() {
		return decimal.Zero
	}
	edgeRatio := rawEdge.Div(minEdge)
	if edgeRatio.Cmp(decimal.One) > 0 {
		capped := decimal.Min(edgeRatio, decimal.NewFromFloat(2))
		return baseMax.Mul(capped)
	}
	return baseMax.Mul(edgeRatio)
}

// DetectSingleMarket implements §4.2 steps 1-11 for one market, dispatching
// on whether the store has tagged it binary (exactly two books, Yes/No
// set) or left it as an untagged multi-outcome market.
func (d *Detector) DetectSingleMarket(store *orderbook.Store, marketID, eventID string, minLiquidityOverride decimal.D, now time.Time) *Opportunity {
	defer latency.Scoped(d.latency)()

	asks := store.BestAsks(marketID)
	n := len(asks)
	if n < 2 {
		return nil
	}

	mb, ok := store.MarketBooks(marketID)
	if !ok {
		return nil
	}

	sum := decimal.Zero
	minSize := asks[0].Size
	for _, a := range asks {
		sum = sum.Add(a.Price)
		if a.Size.Cmp(minSize) < 0 {
			minSize = a.Size
		}
	}
	if sum.Cmp(decimal.One) >= 0 {
		d.metrics.rejectedNoEdge.Inc()
		return nil
	}

	minLiquidity := d.cfg.MinLiquidity
	if minLiquidityOverride.IsPositive() {
		minLiquidity = minLiquidityOverride
	}

	rawEdge := decimal.One.Sub(sum)
	maxByEdge := calculateMaxPosition(rawEdge, d.cfg.MinEdge, d.cfg.MaxArbSize)

	binary := mb.IsBinary()
	var liquidityCap decimal.D
	if binary {
		liquidityCap = minSize
	} else {
		liquidityCap = minSize.Mul(decimal.New(int64(n), 0))
	}

	position := decimal.Min(decimal.Min(maxByEdge, liquidityCap), d.cfg.MaxArbSize)
	if position.Cmp(minLiquidity) < 0 {
		d.metrics.rejectedLowLiquidity.Inc()
		return nil
	}

	perOutcome := position
	if !binary {
		perOutcome = position.Div(decimal.New(int64(n), 0))
	}

	payout := position
	cost := position.Mul(sum)
	fee := payout.Mul(d.cfg.FeeRate)
	net := payout.Sub(cost).Sub(fee)
	if net.Cmp(decimal.Zero) <= 0 {
		d.metrics.rejectedNoProfit.Inc()
		return nil
	}

	edgeRatio := net.Div(position)
	if edgeRatio.Cmp(d.cfg.MinEdge) < 0 {
		d.metrics.rejectedEdgeTooSmall.Inc()
		return nil
	}

	if d.risk != nil && d.risk.IsMarketBlacklisted(marketID) {
		d.metrics.rejectedBlacklisted.Inc()
		return nil
	}

	edges := make([]Edge, 0, n)
	for i, a := range asks {
		label := outcomeLabel(binary, a.AssetID, mb.YesAssetID, i)
		edges = append(edges, Edge{
			AssetID:      a.AssetID,
			Outcome:      label,
			Price:        a.Price,
			Size:         perOutcome,
			ExpectedCost: perOutcome.Mul(a.Price),
		})
	}

	kind := KindMultiOutcome
	if binary {
		kind = KindBinary
	}

	op := &Opportunity{
		MarketID:     marketID,
		EventID:      eventID,
		Kind:         kind,
		Edges:        edges,
		TotalEdge:    edgeRatio,
		MinLiquidity: liquidityCap,
		PositionSize: position,
		NetProfit:    net,
		FeeCost:      fee,
		TimestampMs:  now.UnixMilli(),
	}

	d.metrics.opportunitiesDetected.Inc()
	return op
}

// PassesQualityGate applies §4.6's admission heuristic. It is a separate
// step from detection proper (§4.2) so the scanner/pipeline can apply it
// after ranking rather than have every detector silently drop
// small-but-legitimate opportunities (e.g. in unit-scale test fixtures).
func (d *Detector) PassesQualityGate(op Opportunity) bool {
	if QualityScore(op) < 5 {
		d.metrics.rejectedLowQuality.Inc()
		return false
	}
	return true
}

// DetectShortWindow implements §4.3: identical sizing to the binary path
// but a lower min_edge, a capped position size, and the annualized_return
// telemetry field. Callers are expected to have already classified the
// market as short-window (see IsShortWindowMarket) and supply
// minutesToExpiry from that classification.
func (d *Detector) DetectShortWindow(store *orderbook.Store, marketID, eventID string, minutesToExpiry float64, now time.Time) *Opportunity {
	if minutesToExpiry < d.cfg.MinMinutesToExpiry {
		return nil
	}

	asks := store.BestAsks(marketID)
	if len(asks) != 2 {
		return nil
	}
	mb, ok := store.MarketBooks(marketID)
	if !ok || !mb.IsBinary() {
		return nil
	}

	sum := asks[0].Price.Add(asks[1].Price)
	if sum.Cmp(decimal.One) >= 0 {
		return nil
	}

	rawEdge := decimal.One.Sub(sum)
	netEdge := rawEdge.Sub(d.cfg.FeeRate)
	if netEdge.Cmp(d.cfg.ShortWindowMinEdge) < 0 {
		return nil
	}

	liquidity := decimal.Min(asks[0].Size, asks[1].Size)
	if liquidity.Cmp(d.cfg.MinLiquidity) < 0 {
		return nil
	}

	position := decimal.Min(liquidity, d.cfg.ShortWindowMaxSize)
	netProfit := position.Mul(netEdge)
	fee := position.Mul(d.cfg.FeeRate)

	annualized := decimal.Zero
	if minutesToExpiry > 0 {
		annualized = netEdge.Mul(decimal.NewFromFloat(525600 / minutesToExpiry))
	}

	edges := make([]Edge, 0, 2)
	for i, a := range asks {
		label := outcomeLabel(true, a.AssetID, mb.YesAssetID, i)
		edges = append(edges, Edge{
			AssetID:      a.AssetID,
			Outcome:      label,
			Price:        a.Price,
			Size:         position,
			ExpectedCost: position.Mul(a.Price),
		})
	}

	op := &Opportunity{
		MarketID:         marketID,
		EventID:          eventID,
		Kind:             KindShortWindow,
		Edges:            edges,
		TotalEdge:        netEdge,
		MinLiquidity:     liquidity,
		PositionSize:     position,
		NetProfit:        netProfit,
		FeeCost:          fee,
		TimestampMs:      now.UnixMilli(),
		MinutesToExpiry:  minutesToExpiry,
		YesAssetID:       mb.YesAssetID,
		NoAssetID:        mb.NoAssetID,
		AnnualizedReturn: annualized,
	}

	d.metrics.opportunitiesDetected.Inc()
	return op
}
