// Package risk implements the portfolio-level admission gate and position
// bookkeeping, ported field-for-field from the original engine's
// src/risk/mod.rs (RiskManager, Position, Inventory, DailyPnlTracker) into
// the teacher's single-writer-mutex idiom (internal/circuitbreaker uses the
// same atomic-flag-plus-mutex shape for its own admission gate).
package risk

import (
	"strings"
	"sync"
	"time"

	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"go.uber.org/zap"
)

// PositionKind is the closed {Long, SyntheticShort} sum from the data
// model.
type PositionKind int

const (
	PositionLong PositionKind = iota
	PositionSyntheticShort
)

// Edge is the minimal per-leg shape the risk manager needs from an
// opportunity; it intentionally does not import the arbitrage package to
// avoid a cycle (arbitrage calls IsMarketBlacklisted from risk, §4.2 step 10).
type Edge struct {
	AssetID       string
	Outcome       string
	Price         decimal.D
	Size          decimal.D
	ExpectedCost  decimal.D
}

// Opportunity is the minimal view of an arbitrage opportunity risk needs
// to gate and record.
type Opportunity struct {
	MarketID     string
	EventID      string
	Edges        []Edge
	PositionSize decimal.D
	NetProfit    decimal.D
	MinLiquidity decimal.D
}

// ExecutionOutcome is what the executor reports back after attempting an
// opportunity, used to decide whether to credit realized P&L.
type ExecutionOutcome struct {
	Filled      bool
	RealizedPnl decimal.D
}

// Position mirrors src/risk/mod.rs's Position exactly: one open leg of an
// executed arbitrage.
type Position struct {
	MarketID       string
	AssetID        string
	Outcome        string
	Kind           PositionKind
	Size           decimal.D
	AvgPrice       decimal.D
	TotalCost      decimal.D
	EntryTime      time.Time
	UnrealizedPnl  decimal.D
}

// Inventory is the aggregate position view backing the dashboard and
// periodic log line.
type Inventory struct {
	NetDelta      decimal.D
	TotalExposure decimal.D
	MarketCount   int
	LastUpdate    time.Time
}

// DailyPnL rolls over at UTC midnight (§3).
type DailyPnL struct {
	DateUTC    string
	Realized   decimal.D
	Unrealized decimal.D
	TradeCount int
	ArbCount   int
}

// Config holds every risk-gate threshold from §9's config enumeration.
type Config struct {
	MaxConcurrentArbs       int
	DailyLossLimit          decimal.D
	MaxExposurePerMarket    decimal.D
	MaxExposurePerEvent     decimal.D
	InventoryDriftThreshold decimal.D
	MinLiquidity            decimal.D
	PositionTimeoutSeconds  int64
	BlacklistedMarkets      []string
	Logger                  *zap.Logger
}

// Manager is the single-writer risk-gate state machine (§4.7, §5: "single
// writer, serialised"). All public methods take the same mutex so a
// caller never observes admission and recording interleave.
type Manager struct {
	mu sync.Mutex

	cfg Config

	activeArbs      int
	exposureMarket  map[string]decimal.D
	exposureEvent   map[string]decimal.D
	positions       map[string]*Position // keyed by asset_id
	netDelta        decimal.D
	dailyPnL        DailyPnL
	logger          *zap.Logger
}

// New builds a Manager; all counters start at zero.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:            cfg,
		exposureMarket: make(map[string]decimal.D),
		exposureEvent:  make(map[string]decimal.D),
		positions:      make(map[string]*Position),
		netDelta:       decimal.Zero,
		dailyPnL:       DailyPnL{DateUTC: utcDateString(time.Now()), Realized: decimal.Zero, Unrealized: decimal.Zero},
		logger:         logger,
	}
}

func utcDateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// rolloverIfNeeded resets the daily P&L tracker on a UTC date change.
// Caller must hold m.mu.
func (m *Manager) rolloverIfNeeded(now time.Time) {
	today := utcDateString(now)
	if m.dailyPnL.DateUTC != today {
		m.logger.Info("daily-pnl-rollover", zap.String("previous_date", m.dailyPnL.DateUTC), zap.String("new_date", today))
		m.dailyPnL = DailyPnL{DateUTC: today, Realized: decimal.Zero, Unrealized: decimal.Zero}
	}
}

// IsMarketBlacklisted performs a substring match against the configured
// blacklist, matching the original's is_market_blacklisted exactly.
func (m *Manager) IsMarketBlacklisted(marketID string) bool {
	for _, entry := range m.cfg.BlacklistedMarkets {
		if entry != "" && strings.Contains(marketID, entry) {
			return true
		}
	}
	return false
}

// CanExecute implements the five-condition admission gate (§4.7). It is a
// pure read of current state — Testable Property 4 requires calling it
// twice without an intervening RecordExecution to return the same
// verdict, which holds here because CanExecute never mutates state.
func (m *Manager) CanExecute(op Opportunity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canExecuteLocked(op, time.Now())
}

func (m *Manager) canExecuteLocked(op Opportunity, now time.Time) bool {
	m.rolloverIfNeeded(now)

	if m.activeArbs >= m.cfg.MaxConcurrentArbs {
		return false
	}
	if m.dailyPnL.Realized.Add(m.dailyPnL.Unrealized).Cmp(m.cfg.DailyLossLimit.Neg()) <= 0 {
		return false
	}

	projectedMarketExposure := m.exposureMarket[op.MarketID].Add(op.PositionSize)
	if projectedMarketExposure.Cmp(m.cfg.MaxExposurePerMarket) > 0 {
		return false
	}

	projectedDelta := m.projectedNetDelta(op)
	if projectedDelta.Abs().Cmp(m.cfg.InventoryDriftThreshold) > 0 {
		return false
	}

	if op.MinLiquidity.Cmp(m.cfg.MinLiquidity) < 0 {
		return false
	}

	return true
}

// projectedNetDelta sums the opportunity's edge sizes (signed by outcome:
// Yes-style edges add, No-style edges subtract) onto the current net
// delta. Caller must hold m.mu.
func (m *Manager) projectedNetDelta(op Opportunity) decimal.D {
	delta := m.netDelta
	for _, e := range op.Edges {
		if strings.EqualFold(e.Outcome, "No") {
			delta = delta.Sub(e.Size)
		} else {
			delta = delta.Add(e.Size)
		}
	}
	return delta
}

// RecordExecution commits the effects of an execution attempt: it
// increments active_arbs, adds one position per edge, increments both
// exposure tables, increments the daily counters, and — only on a full
// fill — adds the executor-reported realized P&L. Per the resolved Open
// Question, callers must pass realized P&L computed explicitly as
// payout − cost − fee, never read off an executor's "total_cost" field.
func (m *Manager) RecordExecution(op Opportunity, outcome ExecutionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.rolloverIfNeeded(now)

	m.activeArbs++

	for _, e := range op.Edges {
		kind := PositionLong
		signedSize := e.Size
		if strings.EqualFold(e.Outcome, "No") {
			kind = PositionSyntheticShort
			signedSize = e.Size.Neg()
		}

		m.positions[e.AssetID] = &Position{
			MarketID:  op.MarketID,
			AssetID:   e.AssetID,
			Outcome:   e.Outcome,
			Kind:      kind,
			Size:      e.Size,
			AvgPrice:  e.Price,
			TotalCost: e.ExpectedCost,
			EntryTime: now,
		}
		m.netDelta = m.netDelta.Add(signedSize)
	}

	m.exposureMarket[op.MarketID] = m.exposureMarket[op.MarketID].Add(op.PositionSize)
	if op.EventID != "" {
		m.exposureEvent[op.EventID] = m.exposureEvent[op.EventID].Add(op.PositionSize)
	}

	m.dailyPnL.TradeCount++
	m.dailyPnL.ArbCount++
	if outcome.Filled {
		m.dailyPnL.Realized = m.dailyPnL.Realized.Add(outcome.RealizedPnl)
	}

	m.logger.Info("arbitrage-execution-recorded",
		zap.String("market_id", op.MarketID),
		zap.Int("edge_count", len(op.Edges)),
		zap.Bool("filled", outcome.Filled),
		zap.Int("active_arbs", m.activeArbs))
}

// Sweep removes positions older than PositionTimeoutSeconds, decrements
// the corresponding exposure entries, and decrements active_arbs,
// saturating at zero. Idempotent and safe to re-run (§7).
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	timeout := time.Duration(m.cfg.PositionTimeoutSeconds) * time.Second
	removed := 0

	for assetID, pos := range m.positions {
		if now.Sub(pos.EntryTime) <= timeout {
			continue
		}

		m.exposureMarket[pos.MarketID] = decimal.Max(decimal.Zero, m.exposureMarket[pos.MarketID].Sub(pos.Size))

		signedSize := pos.Size
		if pos.Kind == PositionSyntheticShort {
			signedSize = pos.Size.Neg()
		}
		m.netDelta = m.netDelta.Sub(signedSize)

		delete(m.positions, assetID)
		if m.activeArbs > 0 {
			m.activeArbs--
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("position-sweep-completed", zap.Int("removed", removed), zap.Int("active_arbs", m.activeArbs))
	}
	return removed
}

// ShouldStopTrading reports whether the daily loss limit has been
// breached.
func (m *Manager) ShouldStopTrading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.dailyPnL.Realized.Add(m.dailyPnL.Unrealized)
	return total.Cmp(m.cfg.DailyLossLimit.Neg()) < 0
}

// ExposureForMarket returns the current cumulative exposure for a market.
func (m *Manager) ExposureForMarket(marketID string) decimal.D {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exposureMarket[marketID]
}

// ActiveArbs returns the current count of open arbitrage positions.
func (m *Manager) ActiveArbs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeArbs
}

// Summary is a point-in-time view for the HTTP dashboard and periodic log
// line.
type Summary struct {
	ActiveArbs int
	Inventory  Inventory
	DailyPnL   DailyPnL
}

// GetRiskSummary returns a consistent snapshot of the manager's state.
func (m *Manager) GetRiskSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	totalExposure := decimal.Zero
	for _, v := range m.exposureMarket {
		totalExposure = totalExposure.Add(v)
	}

	return Summary{
		ActiveArbs: m.activeArbs,
		Inventory: Inventory{
			NetDelta:      m.netDelta,
			TotalExposure: totalExposure,
			MarketCount:   len(m.exposureMarket),
			LastUpdate:    time.Now(),
		},
		DailyPnL: m.dailyPnL,
	}
}
