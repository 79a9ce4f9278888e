package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/circuitbreaker"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

// lingerDuration is the fixed post-submit sleep before cancel-all (§4.8
// step 5). It is deliberately not configurable: the figure comes from the
// venue's own matching-engine latency budget, not from a tunable strategy
// parameter.
const lingerDuration = 200 * time.Millisecond

// LiveConfig configures a LiveExecutor.
type LiveConfig struct {
	OrderClient       *OrderClient
	Store             *orderbook.Store
	CircuitBreaker    *circuitbreaker.BalanceCircuitBreaker
	SlippageTolerance decimal.D
	SubmitTimeout     time.Duration
	VerifyTimeout     time.Duration
	Logger            *zap.Logger
}

// LiveExecutor implements §4.8: slippage revalidation, GTC build/sign,
// parallel per-edge submission, a fixed linger, unconditional cancel-all,
// and result aggregation.
type LiveExecutor struct {
	client            *OrderClient
	store             *orderbook.Store
	circuitBreaker    *circuitbreaker.BalanceCircuitBreaker
	slippageTolerance decimal.D
	submitTimeout     time.Duration
	verifyTimeout     time.Duration
	logger            *zap.Logger
	metrics           *metrics
}

// NewLiveExecutor builds a LiveExecutor bound to a signing order client and
// the live order-book store used for slippage revalidation.
func NewLiveExecutor(cfg LiveConfig) *LiveExecutor {
	submitTimeout := cfg.SubmitTimeout
	if submitTimeout == 0 {
		submitTimeout = 8 * time.Second
	}
	verifyTimeout := cfg.VerifyTimeout
	if verifyTimeout == 0 {
		verifyTimeout = 5 * time.Second
	}
	return &LiveExecutor{
		client:            cfg.OrderClient,
		store:             cfg.Store,
		circuitBreaker:    cfg.CircuitBreaker,
		slippageTolerance: cfg.SlippageTolerance,
		submitTimeout:     submitTimeout,
		verifyTimeout:     verifyTimeout,
		logger:            cfg.Logger,
		metrics:           newMetrics(),
	}
}

// Execute runs one opportunity through the live path. It never returns a
// nil Result: build/slippage failures are reported as a failed Result, not
// a Go error, so callers always have per_order[] to log (§4.8: "build/sign
// errors are treated as per-order failures").
func (e *LiveExecutor) Execute(ctx context.Context, op arbitrage.Opportunity) Result {
	start := time.Now()
	defer func() { e.metrics.executionSeconds.Observe(time.Since(start).Seconds()) }()

	if e.circuitBreaker != nil && !e.circuitBreaker.IsEnabled() {
		return Result{MarketID: op.MarketID, Success: false, Error: "circuit breaker disabled trading", ElapsedMs: time.Since(start).Milliseconds()}
	}

	if err := e.revalidateSlippage(op); err != nil {
		e.metrics.rejectedSlippage.Inc()
		return Result{MarketID: op.MarketID, Success: false, Error: err.Error(), ElapsedMs: time.Since(start).Milliseconds()}
	}

	perOrder := e.submitAll(ctx, op)

	// Linger then cancel-all regardless of submit outcome or context state
	// (§4.8 step 5, §5: "not cancellable by design").
	time.Sleep(lingerDuration)
	cancelCtx, cancel := context.WithTimeout(context.Background(), e.submitTimeout)
	if err := e.client.CancelAll(cancelCtx, op.MarketID); err != nil {
		e.logger.Warn("cancel-all-failed", zap.String("market-id", op.MarketID), zap.Error(err))
	}
	cancel()

	e.settleFills(ctx, perOrder)

	result := aggregate(op.MarketID, perOrder, time.Since(start).Milliseconds())

	switch {
	case result.Filled:
		e.metrics.fullyFilled.Inc()
	case result.PartialFill:
		e.metrics.partiallyFilled.Inc()
	default:
		e.metrics.unfilled.Inc()
	}

	return result
}

// revalidateSlippage re-reads each edge's current best ask and aborts if it
// has moved beyond slippage_tolerance from the price the opportunity was
// detected at (§4.8 step 1).
func (e *LiveExecutor) revalidateSlippage(op arbitrage.Opportunity) error {
	asks := e.store.BestAsks(op.MarketID)
	current := make(map[string]decimal.D, len(asks))
	for _, a := range asks {
		current[a.AssetID] = a.Price
	}

	for _, edge := range op.Edges {
		fresh, ok := current[edge.AssetID]
		if !ok {
			return fmt.Errorf("edge %s: no current ask in store", edge.AssetID)
		}
		deviation := fresh.Sub(edge.Price).Abs()
		if deviation.Cmp(e.slippageTolerance) > 0 {
			return fmt.Errorf("edge %s: price moved %s beyond tolerance %s (quoted %s, now %s)",
				edge.AssetID, deviation, e.slippageTolerance, edge.Price, fresh)
		}
	}
	return nil
}

// submitAll fans out one GTC build/sign/submit task per edge (§4.8 step 4).
func (e *LiveExecutor) submitAll(ctx context.Context, op arbitrage.Opportunity) []OrderResult {
	results := make([]OrderResult, len(op.Edges))
	var wg sync.WaitGroup
	wg.Add(len(op.Edges))

	submitCtx, cancel := context.WithTimeout(ctx, e.submitTimeout)
	defer cancel()

	for i, edge := range op.Edges {
		go func(i int, edge arbitrage.Edge) {
			defer wg.Done()
			results[i] = e.submitOne(submitCtx, edge)
		}(i, edge)
	}
	wg.Wait()
	return results
}

func (e *LiveExecutor) submitOne(ctx context.Context, edge arbitrage.Edge) OrderResult {
	tokenAmount := edge.Size.Shift(6).Round(0).String()
	usdAmount := edge.ExpectedCost.Shift(6).Round(0).String()

	resp, err := e.client.PlaceGTC(ctx, edge.AssetID, tokenAmount, usdAmount)
	if err != nil {
		e.logger.Warn("edge-submit-failed", zap.String("asset-id", edge.AssetID), zap.Error(err))
		return OrderResult{AssetID: edge.AssetID, Submitted: false, Error: err.Error()}
	}
	if !resp.Success {
		return OrderResult{AssetID: edge.AssetID, Submitted: false, Error: resp.ErrorMsg}
	}

	result := OrderResult{AssetID: edge.AssetID, OrderID: resp.OrderID, Submitted: true}
	if resp.Status == "matched" {
		result.Filled = true
		result.FilledSize = edge.Size
		result.FilledPrice = edge.Price
	}
	return result
}

// settleFills queries the final state of every submitted-but-not-yet-
// confirmed order once, after cancel-all has had time to take effect. This
// is the one point where an in-flight fill racing the cancel is resolved.
func (e *LiveExecutor) settleFills(ctx context.Context, perOrder []OrderResult) {
	verifyCtx, cancel := context.WithTimeout(context.Background(), e.verifyTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := range perOrder {
		o := &perOrder[i]
		if !o.Submitted || o.Filled {
			continue
		}
		wg.Add(1)
		go func(o *OrderResult) {
			defer wg.Done()
			resp, err := e.client.GetOrder(verifyCtx, o.OrderID)
			if err != nil {
				e.logger.Warn("fill-settlement-query-failed", zap.String("order-id", o.OrderID), zap.Error(err))
				return
			}
			if resp.SizeFilled > 0 {
				o.Filled = resp.SizeFilled >= resp.Size
				o.FilledSize = decimal.NewFromFloat(resp.SizeFilled)
				o.FilledPrice = decimal.NewFromFloat(resp.Price)
			}
		}(o)
	}
	wg.Wait()
}
