// Package volumefarmer rotates small marketable buys through cheap,
// almost-certain-to-lose contracts to accumulate notional trading volume
// under a daily USD budget (§12 item 4 / spec.md's "Market-maker & volume-
// farmer: opportunity enumeration + simulation bookkeeping").
//
// Buying $1 of a contract priced at $0.01 books $100 of notional volume:
// the loss on resolution is the price of qualifying for volume-gated
// rewards. This package only ever simulates the spend; it never submits a
// real order.
package volumefarmer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// airdropMultiplier is the rough volume-to-reward-value estimate carried
// over from the original ("assume 0.1% of volume translates to reward
// value ... speculative, actual allocation is unknown").
var airdropMultiplier = decimal.New(1, -3)

// Opportunity is one cheap contract worth buying for volume.
type Opportunity struct {
	MarketID         string
	AssetID          string
	OutcomeName      string
	Price            decimal.D
	AvailableSize    decimal.D
	CostForMinVolume decimal.D
	NotionalVolume   decimal.D
	VolumeMultiplier decimal.D // notional_volume / cost, i.e. 1/price
}

// Trade is one executed (simulated) farming buy.
type Trade struct {
	Timestamp      time.Time
	MarketID       string
	AssetID        string
	Price          decimal.D
	Size           decimal.D
	Cost           decimal.D
	NotionalVolume decimal.D
}

// Stats is the aggregate snapshot returned by VolumeFarmer.Stats.
type Stats struct {
	TradesExecuted       uint64
	TotalCost            decimal.D
	TotalNotionalVolume  decimal.D
	AvgVolumeMultiplier  decimal.D
	DailyBudgetUsed      decimal.D
	EstimatedRewardValue decimal.D
}

// Config holds the vf_* knobs (spec.md §"Config surface").
type Config struct {
	MaxPrice          decimal.D
	MinVolumePerTrade decimal.D
	DailyBudget       decimal.D
	InitialBalance    decimal.D
	Logger            *zap.Logger
}

// VolumeFarmer simulates the trash-farming strategy against a daily USD
// budget, grounded in the original's VolumeFarmer.
type VolumeFarmer struct {
	cfg Config

	mu          sync.Mutex
	trades      []Trade
	dailySpend  decimal.D
	totalVolume decimal.D
	lastReset   time.Time
	balance     decimal.D
	logger      *zap.Logger
}

// New builds a VolumeFarmer from its vf_* config and starting balance.
func New(cfg Config) *VolumeFarmer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolumeFarmer{
		cfg:       cfg,
		lastReset: time.Now(),
		balance:   cfg.InitialBalance,
		logger:    logger,
	}
}

// FindOpportunities scans every market's asks for contracts priced at or
// below vf_max_price, sized to cover at least vf_min_volume_per_trade of
// notional volume, sorted by volume multiplier descending (cheapest
// contracts, i.e. best deals, first).
func (f *VolumeFarmer) FindOpportunities(store *orderbook.Store, markets []types.Market) []Opportunity {
	var opps []Opportunity

	for _, mkt := range markets {
		for i, tok := range mkt.Tokens {
			view, ok := store.Book(mkt.ID, tok.TokenID)
			if !ok {
				continue
			}
			for _, ask := range view.Asks {
				if ask.Price.Cmp(f.cfg.MaxPrice) > 0 || !decimal.IsPositive(ask.Price) {
					continue
				}

				volumeMultiplier := decimal.One.Div(ask.Price) // contracts per dollar
				costForMinVolume := f.cfg.MinVolumePerTrade.Div(volumeMultiplier)
				notionalVolume := costForMinVolume.Mul(volumeMultiplier)

				if ask.Size.Cmp(costForMinVolume.Div(ask.Price)) < 0 {
					continue // not enough depth to fill the minimum-volume clip
				}

				outcomeName := outcomeNameAt(mkt, i)

				opps = append(opps, Opportunity{
					MarketID:         mkt.ID,
					AssetID:          tok.TokenID,
					OutcomeName:      outcomeName,
					Price:            ask.Price,
					AvailableSize:    ask.Size,
					CostForMinVolume: costForMinVolume,
					NotionalVolume:   notionalVolume,
					VolumeMultiplier: volumeMultiplier,
				})
			}
		}
	}

	sortByMultiplierDesc(opps)
	return opps
}

func outcomeNameAt(mkt types.Market, i int) string {
	if i < len(mkt.Tokens) && mkt.Tokens[i].Outcome != "" {
		return mkt.Tokens[i].Outcome
	}
	return "outcome"
}

func sortByMultiplierDesc(opps []Opportunity) {
	for i := 1; i < len(opps); i++ {
		for j := i; j > 0 && opps[j].VolumeMultiplier.Cmp(opps[j-1].VolumeMultiplier) > 0; j-- {
			opps[j], opps[j-1] = opps[j-1], opps[j]
		}
	}
}

// Execute simulates buying one opportunity, clipped to whatever remains
// of the daily budget. Returns (nil, false) if the budget is exhausted or
// the hypothetical balance can't cover the full clip.
func (f *VolumeFarmer) Execute(op Opportunity) (*Trade, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dailySpend.Cmp(f.cfg.DailyBudget) >= 0 {
		f.logger.Debug("daily-budget-exhausted", zap.String("spend", f.dailySpend.String()), zap.String("budget", f.cfg.DailyBudget.String()))
		return nil, false
	}
	if f.balance.Cmp(op.CostForMinVolume) < 0 {
		f.logger.Warn("insufficient-balance", zap.String("balance", f.balance.String()), zap.String("cost", op.CostForMinVolume.String()))
		return nil, false
	}

	remainingBudget := f.cfg.DailyBudget.Sub(f.dailySpend)
	actualCost := decimal.Min(op.CostForMinVolume, remainingBudget)
	actualVolume := actualCost.Mul(op.VolumeMultiplier)

	trade := Trade{
		Timestamp:      time.Now(),
		MarketID:       op.MarketID,
		AssetID:        op.AssetID,
		Price:          op.Price,
		Size:           actualCost.Div(op.Price),
		Cost:           actualCost,
		NotionalVolume: actualVolume,
	}

	f.balance = f.balance.Sub(actualCost)
	f.dailySpend = f.dailySpend.Add(actualCost)
	f.totalVolume = f.totalVolume.Add(actualVolume)
	f.trades = append(f.trades, trade)

	f.logger.Info("trash-trade",
		zap.String("outcome", op.OutcomeName),
		zap.String("price", op.Price.String()),
		zap.String("cost", actualCost.String()),
		zap.String("volume", actualVolume.String()),
		zap.String("balance", f.balance.String()))

	return &trade, true
}

// ResetDailyBudget zeroes the daily spend counter; callers invoke this on
// a UTC-midnight tick.
func (f *VolumeFarmer) ResetDailyBudget() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dailySpend = decimal.Zero
	f.lastReset = time.Now()
}

// ShouldResetBudget reports whether 24h have passed since the last reset.
func (f *VolumeFarmer) ShouldResetBudget(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return now.Sub(f.lastReset) >= 24*time.Hour
}

// RemainingBudget returns what's left of today's vf_daily_budget, never
// negative.
func (f *VolumeFarmer) RemainingBudget() decimal.D {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.cfg.DailyBudget.Sub(f.dailySpend)
	return decimal.Max(remaining, decimal.Zero)
}

// Balance returns the current hypothetical balance.
func (f *VolumeFarmer) Balance() decimal.D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

// PnL returns cumulative hypothetical profit/loss since New.
func (f *VolumeFarmer) PnL() decimal.D {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance.Sub(f.cfg.InitialBalance)
}

// Stats returns a point-in-time snapshot of farming activity.
func (f *VolumeFarmer) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	totalCost := decimal.Zero
	for _, t := range f.trades {
		totalCost = totalCost.Add(t.Cost)
	}

	avgMultiplier := decimal.Zero
	if len(f.trades) > 0 && decimal.IsPositive(totalCost) {
		avgMultiplier = f.totalVolume.Div(totalCost)
	}

	return Stats{
		TradesExecuted:       uint64(len(f.trades)),
		TotalCost:            totalCost,
		TotalNotionalVolume:  f.totalVolume,
		AvgVolumeMultiplier:  avgMultiplier,
		DailyBudgetUsed:      f.dailySpend,
		EstimatedRewardValue: f.totalVolume.Mul(airdropMultiplier),
	}
}

// Trades returns a copy of every executed trade.
func (f *VolumeFarmer) Trades() []Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Trade, len(f.trades))
	copy(out, f.trades)
	return out
}
