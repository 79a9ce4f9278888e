package orderbook

import (
	"sync"
	"time"

	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// marketBooks holds every per-asset book for one market, its Yes/No tags,
// and its own lock — the store's unit of concurrency (§4.1: "a per-market
// fine-grained lock or shard-map is sufficient; a global lock is not").
type marketBooks struct {
	mu         sync.RWMutex
	marketID   string
	books      map[string]*book
	assetOrder []string // insertion order, for tie-break tagging
	yesAssetID string
	noAssetID  string
}

func newMarketBooks(marketID string) *marketBooks {
	return &marketBooks{
		marketID: marketID,
		books:    make(map[string]*book),
	}
}

// Config configures a Store.
type Config struct {
	Logger *zap.Logger
	// MaxUpdatesPerSec bounds ingest throughput (config key
	// max_orderbook_updates_per_sec, §9). Zero disables the limiter.
	MaxUpdatesPerSec int
	Tagging          TaggingStrategy
}

// Store is the market→assets→books map: concurrent read/write, per-market
// locking, §4.1.
type Store struct {
	mu       sync.RWMutex // guards the markets map itself, not book contents
	markets  map[string]*marketBooks
	logger   *zap.Logger
	tagging  TaggingStrategy
	limiter  *rate.Limiter
	metrics  *metrics
}

// New builds an empty Store.
func New(cfg Config) *Store {
	tagging := cfg.Tagging
	if tagging == nil {
		tagging = DefaultTaggingStrategy
	}

	var limiter *rate.Limiter
	if cfg.MaxUpdatesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxUpdatesPerSec), cfg.MaxUpdatesPerSec)
	}

	return &Store{
		markets: make(map[string]*marketBooks),
		logger:  cfg.Logger,
		tagging: tagging,
		limiter: limiter,
		metrics: newMetrics(),
	}
}

func (s *Store) marketFor(marketID string, createIfMissing bool) *marketBooks {
	s.mu.RLock()
	mb, ok := s.markets[marketID]
	s.mu.RUnlock()
	if ok {
		return mb
	}
	if !createIfMissing {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	mb, ok = s.markets[marketID]
	if ok {
		return mb
	}
	mb = newMarketBooks(marketID)
	s.markets[marketID] = mb
	return mb
}

// ApplySnapshot replaces the ladders for (marketID, assetID). Enforces the
// staleness guard and computes Yes/No tags on the transition to two books.
func (s *Store) ApplySnapshot(marketID, assetID string, bids, asks []Level, timestampMs int64, hash string) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.updatesDropped.Inc()
		return false
	}

	mb := s.marketFor(marketID, true)
	mb.mu.Lock()
	defer mb.mu.Unlock()

	b, exists := mb.books[assetID]
	if !exists {
		b = newBook(marketID, assetID)
		mb.books[assetID] = b
		mb.assetOrder = append(mb.assetOrder, assetID)
	}

	applied := b.applySnapshot(bids, asks, timestampMs, hash)
	if !applied {
		s.metrics.staleUpdatesDropped.Inc()
		if s.logger != nil {
			s.logger.Debug("stale-snapshot-dropped",
				zap.String("market_id", marketID), zap.String("asset_id", assetID))
		}
		return false
	}

	s.metrics.snapshotsApplied.Inc()
	s.maybeTag(mb)
	return true
}

// ApplyDelta upserts or removes a single level and advances the book's
// timestamp, subject to the same staleness guard.
func (s *Store) ApplyDelta(marketID, assetID string, price, size decimal.D, side types.Side, timestampMs int64) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		s.metrics.updatesDropped.Inc()
		return false
	}

	mb := s.marketFor(marketID, false)
	if mb == nil {
		if s.logger != nil {
			s.logger.Debug("delta-for-unknown-market", zap.String("market_id", marketID))
		}
		return false
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	b, exists := mb.books[assetID]
	if !exists {
		if s.logger != nil {
			s.logger.Debug("delta-for-unknown-asset", zap.String("market_id", marketID), zap.String("asset_id", assetID))
		}
		return false
	}

	if timestampMs == 0 {
		timestampMs = time.Now().UnixMilli()
	}
	applied := b.applyDelta(price, size, side, timestampMs)
	if !applied {
		s.metrics.staleUpdatesDropped.Inc()
		return false
	}

	s.metrics.deltasApplied.Inc()
	return true
}

// maybeTag assigns Yes/No once a market has exactly two books and is not
// yet tagged. Caller must hold mb.mu.
func (s *Store) maybeTag(mb *marketBooks) {
	if mb.yesAssetID != "" || len(mb.books) != 2 {
		return
	}

	first := mb.books[mb.assetOrder[0]]
	second := mb.books[mb.assetOrder[1]]

	yes := s.tagging(first, second)
	mb.yesAssetID = yes
	if yes == first.assetID {
		mb.noAssetID = second.assetID
	} else {
		mb.noAssetID = first.assetID
	}
}

// AssetAsk is one entry of BestAsks: the asset's best ask and its size.
type AssetAsk struct {
	AssetID string
	Price   decimal.D
	Size    decimal.D
}

// BestAsks returns, for every asset in the market, the lowest-price ask
// and its size, in insertion order.
func (s *Store) BestAsks(marketID string) []AssetAsk {
	mb := s.marketFor(marketID, false)
	if mb == nil {
		return nil
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	out := make([]AssetAsk, 0, len(mb.assetOrder))
	for _, assetID := range mb.assetOrder {
		b := mb.books[assetID]
		ask, ok := b.bestAsk()
		if !ok {
			continue
		}
		out = append(out, AssetAsk{AssetID: assetID, Price: ask.Price, Size: ask.Size})
	}
	return out
}

// Book returns a defensive-copy view of one asset's book.
func (s *Store) Book(marketID, assetID string) (BookView, bool) {
	mb := s.marketFor(marketID, false)
	if mb == nil {
		return BookView{}, false
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	b, ok := mb.books[assetID]
	if !ok {
		return BookView{}, false
	}
	return b.view(), true
}

// MarketBooksView is a read-only snapshot of every book in a market plus
// its Yes/No tags.
type MarketBooksView struct {
	MarketID   string
	Books      []BookView
	YesAssetID string
	NoAssetID  string
}

// IsBinary reports whether the market holds exactly two books and both
// Yes/No tags are set (§3).
func (v MarketBooksView) IsBinary() bool {
	return len(v.Books) == 2 && v.YesAssetID != "" && v.NoAssetID != ""
}

// MarketBooks returns a snapshot of every book for a market.
func (s *Store) MarketBooks(marketID string) (MarketBooksView, bool) {
	mb := s.marketFor(marketID, false)
	if mb == nil {
		return MarketBooksView{}, false
	}

	mb.mu.RLock()
	defer mb.mu.RUnlock()

	views := make([]BookView, 0, len(mb.assetOrder))
	for _, assetID := range mb.assetOrder {
		views = append(views, mb.books[assetID].view())
	}

	return MarketBooksView{
		MarketID:   mb.marketID,
		Books:      views,
		YesAssetID: mb.yesAssetID,
		NoAssetID:  mb.noAssetID,
	}, true
}

// MarketIDs returns every market currently tracked.
func (s *Store) MarketIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.markets))
	for id := range s.markets {
		out = append(out, id)
	}
	return out
}

// EvictStale drops any market containing at least one book older than
// maxAgeMs, relative to now. Returns the number of markets evicted.
func (s *Store) EvictStale(maxAgeMs int64) int {
	nowMs := time.Now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for marketID, mb := range s.markets {
		mb.mu.RLock()
		stale := false
		for _, b := range mb.books {
			if nowMs-b.timestampMs > maxAgeMs {
				stale = true
				break
			}
		}
		mb.mu.RUnlock()

		if stale {
			delete(s.markets, marketID)
			evicted++
			s.metrics.marketsEvicted.Inc()
			if s.logger != nil {
				s.logger.Info("market-evicted-stale", zap.String("market_id", marketID))
			}
		}
	}
	return evicted
}
