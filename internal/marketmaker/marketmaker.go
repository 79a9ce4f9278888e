// Package marketmaker places symmetric bid/ask quotes around a market's
// midpoint and tracks simulated fills (§12 item 3 / spec.md's "Market-maker
// & volume-farmer: opportunity enumeration + simulation bookkeeping").
//
// This is a pass-through component: it never touches a real order book. It
// exists so the rest of the engine has somewhere to route quote-placement
// and staleness-refresh logic, ported from the original's market_maker
// module with one deliberate behavior change (see RefreshStale).
package marketmaker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// OrderSide distinguishes a resting bid from a resting ask.
type OrderSide int

const (
	SideBid OrderSide = iota
	SideAsk
)

func (s OrderSide) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// OrderStatus is the lifecycle of one simulated resting order.
type OrderStatus int

const (
	StatusOpen OrderStatus = iota
	StatusPartialFill
	StatusFilled
	StatusCancelled
)

// OpenOrder is one simulated resting quote.
type OpenOrder struct {
	OrderID   string
	MarketID  string
	AssetID   string
	Side      OrderSide
	Price     decimal.D
	Size      decimal.D
	Filled    decimal.D
	CreatedAt time.Time
	Status    OrderStatus
}

// Opportunity is a market worth quoting: a non-degenerate book with a
// spread wide enough to clear mm_spread_bps after quoting inside it.
type Opportunity struct {
	MarketID  string
	AssetID   string
	Midpoint  decimal.D
	BidPrice  decimal.D
	AskPrice  decimal.D
	Size      decimal.D
	SpreadBPS int64
	EstReward decimal.D
}

// MarketStats accumulates per-market quoting activity.
type MarketStats struct {
	OrdersPlaced uint64
	OrdersFilled uint64
	VolumeQuoted decimal.D
	VolumeFilled decimal.D
	SpreadEarned decimal.D
	LastQuotedAt time.Time
}

// Stats is the aggregate snapshot returned by MarketMaker.Stats.
type Stats struct {
	TotalOrdersPlaced uint64
	TotalOrdersFilled uint64
	TotalVolumeFilled decimal.D
	TotalSpreadEarned decimal.D
	OpenOrderCount    int
	PerMarket         map[string]MarketStats
}

// Config holds the mm_* knobs (spec.md §"Config surface").
type Config struct {
	SpreadBPS          int64
	OrderSize          decimal.D
	MaxOrdersPerMarket int
	RefreshInterval    time.Duration
	Logger             *zap.Logger
}

// MarketMaker places and refreshes simulated symmetric quotes. It never
// submits a real order: FindOpportunities and PlaceQuotes are bookkeeping
// only, grounded in the original's MarketMaker::find_opportunities and
// MarketMaker::place_orders.
type MarketMaker struct {
	cfg Config

	mu          sync.Mutex
	openOrders  map[string]OpenOrder // keyed by OrderID
	marketStats map[string]MarketStats
	logger      *zap.Logger
}

// New builds a MarketMaker from its mm_* config.
func New(cfg Config) *MarketMaker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketMaker{
		cfg:         cfg,
		openOrders:  make(map[string]OpenOrder),
		marketStats: make(map[string]MarketStats),
		logger:      logger,
	}
}

// FindOpportunities scans every market's book for one worth quoting: it
// must have both a best bid and best ask, and the resulting quote-inside-
// spread must clear the configured mm_spread_bps after leaving the
// maker's own spread-capture room on each side.
func (m *MarketMaker) FindOpportunities(store *orderbook.Store, markets []types.Market) []Opportunity {
	var opps []Opportunity

	for _, mkt := range markets {
		for _, tok := range mkt.Tokens {
			view, ok := store.Book(mkt.ID, tok.TokenID)
			if !ok {
				continue
			}
			bestBid, hasBid := view.BestBid()
			bestAsk, hasAsk := view.BestAsk()
			if !hasBid || !hasAsk {
				continue
			}
			if bestAsk.Price.Cmp(bestBid.Price) <= 0 {
				continue // crossed or locked book, nothing to quote inside
			}

			midpoint := bestBid.Price.Add(bestAsk.Price).Div(decimal.New(2, 0))
			spread := bestAsk.Price.Sub(bestBid.Price)
			spreadBPS := spread.Div(midpoint).Mul(decimal.New(10000, 0)).Round(0).IntPart()

			if spreadBPS < m.cfg.SpreadBPS {
				continue // too tight to quote inside profitably
			}

			half := decimal.New(m.cfg.SpreadBPS, -4).Div(decimal.New(2, 0)) // half the target spread, as a fraction
			bidPrice := midpoint.Sub(midpoint.Mul(half))
			askPrice := midpoint.Add(midpoint.Mul(half))

			opps = append(opps, Opportunity{
				MarketID:  mkt.ID,
				AssetID:   tok.TokenID,
				Midpoint:  midpoint,
				BidPrice:  bidPrice,
				AskPrice:  askPrice,
				Size:      m.cfg.OrderSize,
				SpreadBPS: spreadBPS,
				EstReward: m.cfg.OrderSize.Mul(decimal.New(2, 0)).Div(decimal.New(846, 0)),
			})
		}
	}

	return opps
}

// PlaceQuotes books a symmetric bid/ask pair per opportunity, skipping any
// market already at mm_max_orders_per_market open orders.
func (m *MarketMaker) PlaceQuotes(opps []Opportunity) []OpenOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	placed := make([]OpenOrder, 0, len(opps)*2)
	now := time.Now()

	for _, o := range opps {
		if m.openOrderCountLocked(o.MarketID) >= m.cfg.MaxOrdersPerMarket {
			continue
		}

		bid := m.placeOneLocked(o.MarketID, o.AssetID, SideBid, o.BidPrice, o.Size, now)
		ask := m.placeOneLocked(o.MarketID, o.AssetID, SideAsk, o.AskPrice, o.Size, now)
		placed = append(placed, bid, ask)

		stats := m.marketStats[o.MarketID]
		stats.OrdersPlaced += 2
		stats.VolumeQuoted = stats.VolumeQuoted.Add(o.Size).Add(o.Size)
		stats.LastQuotedAt = now
		m.marketStats[o.MarketID] = stats
	}

	return placed
}

func (m *MarketMaker) openOrderCountLocked(marketID string) int {
	n := 0
	for _, o := range m.openOrders {
		if o.MarketID == marketID && o.Status == StatusOpen {
			n++
		}
	}
	return n
}

func (m *MarketMaker) placeOneLocked(marketID, assetID string, side OrderSide, price, size decimal.D, now time.Time) OpenOrder {
	order := OpenOrder{
		OrderID:   uuid.NewString(),
		MarketID:  marketID,
		AssetID:   assetID,
		Side:      side,
		Price:     price,
		Size:      size,
		CreatedAt: now,
		Status:    StatusOpen,
	}
	m.openOrders[order.OrderID] = order
	return order
}

// SimulateFills checks every open order's asset against the current book
// and marks it filled if the opposing side has crossed its price: a bid
// fills once the best ask drops to or below it, an ask fills once the
// best bid rises to or above it.
func (m *MarketMaker) SimulateFills(store *orderbook.Store) []OpenOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	var filled []OpenOrder
	for id, order := range m.openOrders {
		if order.Status != StatusOpen {
			continue
		}
		view, ok := store.Book(order.MarketID, order.AssetID)
		if !ok {
			continue
		}

		crossed := false
		switch order.Side {
		case SideBid:
			if ask, ok := view.BestAsk(); ok && ask.Price.Cmp(order.Price) <= 0 {
				crossed = true
			}
		case SideAsk:
			if bid, ok := view.BestBid(); ok && bid.Price.Cmp(order.Price) >= 0 {
				crossed = true
			}
		}
		if !crossed {
			continue
		}

		order.Status = StatusFilled
		order.Filled = order.Size
		m.openOrders[id] = order
		filled = append(filled, order)

		stats := m.marketStats[order.MarketID]
		stats.OrdersFilled++
		stats.VolumeFilled = stats.VolumeFilled.Add(order.Size)
		m.marketStats[order.MarketID] = stats

		m.logger.Info("quote-filled",
			zap.String("order-id", order.OrderID),
			zap.String("market-id", order.MarketID),
			zap.String("side", order.Side.String()))
	}
	return filled
}

// RefreshStale cancels every open order older than mm_order_refresh_secs.
//
// The original's refresh_orders compares `now.duration_since(Instant::now())`
// — a fresh Instant against itself — which always evaluates near zero, so
// the per-order staleness check never fires. This compares against each
// order's own CreatedAt instead, which is the behavior mm_order_refresh_secs
// is documented to control.
func (m *MarketMaker) RefreshStale(now time.Time) []OpenOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cancelled []OpenOrder
	for id, order := range m.openOrders {
		if order.Status != StatusOpen {
			continue
		}
		if now.Sub(order.CreatedAt) < m.cfg.RefreshInterval {
			continue
		}
		order.Status = StatusCancelled
		m.openOrders[id] = order
		cancelled = append(cancelled, order)
	}
	return cancelled
}

// Stats returns a point-in-time snapshot of quoting activity.
func (m *MarketMaker) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Stats{PerMarket: make(map[string]MarketStats, len(m.marketStats))}
	for marketID, s := range m.marketStats {
		out.PerMarket[marketID] = s
		out.TotalOrdersPlaced += s.OrdersPlaced
		out.TotalOrdersFilled += s.OrdersFilled
		out.TotalVolumeFilled = out.TotalVolumeFilled.Add(s.VolumeFilled)
		out.TotalSpreadEarned = out.TotalSpreadEarned.Add(s.SpreadEarned)
	}
	for _, o := range m.openOrders {
		if o.Status == StatusOpen {
			out.OpenOrderCount++
		}
	}
	return out
}
