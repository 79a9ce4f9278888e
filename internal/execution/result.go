package execution

import "github.com/mselser95/predmarket-arb/pkg/decimal"

// OrderResult is the per-edge outcome of one submission (§4.8 step 6's
// per_order[]).
type OrderResult struct {
	AssetID     string
	OrderID     string
	Submitted   bool
	Filled      bool
	FilledSize  decimal.D
	FilledPrice decimal.D
	Error       string
}

// Result is the §4.8/§4.9 ExecutionResult: success is all-orders-accepted,
// filled is all-orders-confirmed, partial_fill is set when some but not all
// edges filled. Both the live and simulation executors return this same
// shape (§4.9: "Identical inputs and outputs").
type Result struct {
	MarketID    string
	Success     bool
	Filled      bool
	PartialFill bool
	FilledSize  decimal.D
	TotalCost   decimal.D
	PerOrder    []OrderResult
	ElapsedMs   int64
	Error       string
}

func aggregate(marketID string, perOrder []OrderResult, elapsedMs int64) Result {
	allSubmitted := true
	allFilled := true
	anyFilled := false
	filledSize := decimal.Zero
	totalCost := decimal.Zero

	for _, o := range perOrder {
		if !o.Submitted {
			allSubmitted = false
			allFilled = false
			continue
		}
		if o.Filled {
			anyFilled = true
			filledSize = filledSize.Add(o.FilledSize)
			totalCost = totalCost.Add(o.FilledSize.Mul(o.FilledPrice))
		} else {
			allFilled = false
		}
	}

	return Result{
		MarketID:    marketID,
		Success:     allSubmitted,
		Filled:      allFilled && anyFilled,
		PartialFill: anyFilled && !allFilled,
		FilledSize:  filledSize,
		TotalCost:   totalCost,
		PerOrder:    perOrder,
		ElapsedMs:   elapsedMs,
	}
}
