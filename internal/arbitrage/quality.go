package arbitrage

import "github.com/mselser95/predmarket-arb/pkg/decimal"

// QualityScore implements §4.6's weighted score over a single-market
// opportunity. Opportunities scoring below 5 are dropped before the risk
// gate ever sees them.
func QualityScore(op Opportunity) float64 {
	edge, _ := op.TotalEdge.Mul(decimal.New(100, 0)).Float64()
	liquidity, _ := op.MinLiquidity.Div(decimal.New(1000, 0)).Float64()
	position, _ := op.PositionSize.Div(decimal.New(500, 0)).Float64()
	profit, _ := op.NetProfit.Div(decimal.New(50, 0)).Float64()

	return 0.4*capAt10(edge) + 0.3*capAt10(liquidity) + 0.2*capAt10(position) + 0.1*capAt10(profit)
}

func capAt10(v float64) float64 {
	if v > 10 {
		return 10
	}
	if v < 0 {
		return 0
	}
	return v
}
