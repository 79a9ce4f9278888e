package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

// ringCapacity is the simulation trade log's fixed size (§4.9: "append the
// trade to a ring buffer of capacity 1000, dropping oldest").
const ringCapacity = 1000

// SimTrade is one entry in the simulation ring buffer.
type SimTrade struct {
	ID           int64
	MarketID     string
	Kind         arbitrage.ArbKind
	PositionSize decimal.D
	ExpectedCost decimal.D
	NetProfit    decimal.D
	FeeCost      decimal.D
	EnteredAt    time.Time
	Settled      bool
	Outcome      string // "pending", "win", "loss"
	ResolvesAt   time.Time
}

// SimExecutor implements §4.9: identical inputs/outputs to LiveExecutor, but
// every side effect lands on a private hypothetical balance instead of a
// real order book. Instant-settle kinds (binary, multi-outcome, cross-
// market) credit the winning payout the moment the opportunity is taken,
// since a sum-below-one arbitrage pays out on whichever outcome resolves.
// Short-window opportunities instead schedule an auto-resolution timer,
// because their edge depends on an exogenous event that has not yet
// happened at entry time.
type SimExecutor struct {
	logger  *zap.Logger
	metrics *metrics

	mu      sync.Mutex
	balance decimal.D
	trades  []SimTrade
	next    int
	nextID  int64
	timers  map[int64]*time.Timer
}

// NewSimExecutor starts a simulation executor with the given hypothetical
// starting balance.
func NewSimExecutor(startingBalance decimal.D, logger *zap.Logger) *SimExecutor {
	return &SimExecutor{
		logger:  logger,
		metrics: newMetrics(),
		balance: startingBalance,
		trades:  make([]SimTrade, 0, ringCapacity),
		timers:  make(map[int64]*time.Timer),
	}
}

// Execute books one opportunity against the hypothetical balance.
func (s *SimExecutor) Execute(ctx context.Context, op arbitrage.Opportunity) Result {
	start := time.Now()
	defer func() { s.metrics.executionSeconds.Observe(time.Since(start).Seconds()) }()

	cost := decimal.Zero
	for _, e := range op.Edges {
		cost = cost.Add(e.ExpectedCost)
	}

	s.mu.Lock()
	if s.balance.Cmp(cost) < 0 {
		s.mu.Unlock()
		s.metrics.simRejectedFunds.Inc()
		return Result{MarketID: op.MarketID, Success: false,
			Error:     fmt.Sprintf("insufficient hypothetical balance: have %s, need %s", s.balance, cost),
			ElapsedMs: time.Since(start).Milliseconds()}
	}
	s.balance = s.balance.Sub(cost)

	trade := SimTrade{
		ID:           s.nextID,
		MarketID:     op.MarketID,
		Kind:         op.Kind,
		PositionSize: op.PositionSize,
		ExpectedCost: cost,
		NetProfit:    op.NetProfit,
		FeeCost:      op.FeeCost,
		EnteredAt:    start,
	}
	s.nextID++

	if op.Kind == arbitrage.KindShortWindow {
		trade.Outcome = "pending"
		trade.ResolvesAt = start.Add(time.Duration(op.MinutesToExpiry * float64(time.Minute)))
		id := trade.ID
		s.timers[id] = time.AfterFunc(time.Until(trade.ResolvesAt), func() { s.resolve(id, "win") })
	} else {
		s.balance = s.balance.Add(op.PositionSize).Sub(op.FeeCost)
		trade.Settled = true
		trade.Outcome = "win"
	}

	s.appendTrade(trade)
	filledSize := op.PositionSize
	if len(op.Edges) > 0 {
		filledSize = decimal.Sum(edgeSizes(op.Edges)...)
	}
	s.mu.Unlock()

	s.metrics.fullyFilled.Inc()

	perOrder := make([]OrderResult, len(op.Edges))
	for i, e := range op.Edges {
		perOrder[i] = OrderResult{AssetID: e.AssetID, Submitted: true, Filled: true, FilledSize: e.Size, FilledPrice: e.Price}
	}

	return Result{
		MarketID:   op.MarketID,
		Success:    true,
		Filled:     true,
		FilledSize: filledSize,
		TotalCost:  cost,
		PerOrder:   perOrder,
		ElapsedMs:  time.Since(start).Milliseconds(),
	}
}

func edgeSizes(edges []arbitrage.Edge) []decimal.D {
	sizes := make([]decimal.D, len(edges))
	for i, e := range edges {
		sizes[i] = e.Size
	}
	return sizes
}

// appendTrade writes into the fixed-capacity ring, overwriting the oldest
// entry once full. Caller must hold s.mu.
func (s *SimExecutor) appendTrade(t SimTrade) {
	if len(s.trades) < ringCapacity {
		s.trades = append(s.trades, t)
		return
	}
	s.trades[s.next] = t
	s.next = (s.next + 1) % ringCapacity
}

// resolve settles a pending short-window trade. Called by the auto-
// resolution timer, or early by ResolveAsLoss for a test.
func (s *SimExecutor) resolve(id int64, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.trades {
		t := &s.trades[i]
		if t.ID != id || t.Settled {
			continue
		}
		t.Settled = true
		t.Outcome = outcome
		if outcome == "win" {
			s.balance = s.balance.Add(t.PositionSize).Sub(t.FeeCost)
		}
		s.logger.Info("short-window-resolved", zap.Int64("trade-id", id), zap.String("outcome", outcome))
		return
	}
}

// ResolveAsLoss is a test hook: it cancels the pending auto-resolution
// timer for a short-window trade and settles it as a loss instead of the
// default win (§4.9: "unless explicitly marked as loss by a test").
func (s *SimExecutor) ResolveAsLoss(id int64) {
	s.mu.Lock()
	timer, ok := s.timers[id]
	s.mu.Unlock()
	if ok {
		timer.Stop()
	}
	s.resolve(id, "loss")
}

// Balance returns the current hypothetical balance.
func (s *SimExecutor) Balance() decimal.D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Trades returns a snapshot of the ring buffer's current contents, oldest
// first once it has wrapped.
func (s *SimExecutor) Trades() []SimTrade {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.trades) < ringCapacity {
		out := make([]SimTrade, len(s.trades))
		copy(out, s.trades)
		return out
	}
	out := make([]SimTrade, ringCapacity)
	copy(out, s.trades[s.next:])
	copy(out[ringCapacity-s.next:], s.trades[:s.next])
	return out
}
