package orderbook

import (
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// maxBackwardSkewMs is the monotonic-write guard from §3: an update whose
// timestamp_ms is older than the stored timestamp by more than this is
// discarded.
const maxBackwardSkewMs = 500

// book is the per-asset order book: bids and asks, each a sorted ladder,
// plus the timestamp/hash used for monotonicity and change detection.
type book struct {
	marketID    string
	assetID     string
	bids        *ladder
	asks        *ladder
	timestampMs int64
	hash        string
}

func newBook(marketID, assetID string) *book {
	return &book{
		marketID: marketID,
		assetID:  assetID,
		bids:     newLadder(sideBid),
		asks:     newLadder(sideAsk),
	}
}

// applySnapshot replaces both ladders wholesale, subject to the staleness
// guard. Returns false when the snapshot was discarded as stale.
func (b *book) applySnapshot(bids, asks []Level, timestampMs int64, hash string) bool {
	if timestampMs < b.timestampMs-maxBackwardSkewMs {
		return false
	}
	b.bids.replace(bids)
	b.asks.replace(asks)
	if timestampMs > b.timestampMs {
		b.timestampMs = timestampMs
	}
	b.hash = hash
	return true
}

// applyDelta upserts or removes a single level, subject to the same
// staleness guard. timestampMs of 0 means "now" at the call site; the
// store always passes an explicit value.
func (b *book) applyDelta(price, size decimal.D, sd types.Side, timestampMs int64) bool {
	if timestampMs < b.timestampMs-maxBackwardSkewMs {
		return false
	}
	switch sd {
	case types.SideSell:
		b.asks.upsert(price, size)
	default:
		b.bids.upsert(price, size)
	}
	if timestampMs > b.timestampMs {
		b.timestampMs = timestampMs
	}
	return true
}

// bestBid and bestAsk read top-of-book.
func (b *book) bestBid() (Level, bool) { return b.bids.best() }
func (b *book) bestAsk() (Level, bool) { return b.asks.best() }

// valid enforces best_bid < best_ask when both sides are present.
func (b *book) valid() bool {
	bid, hasBid := b.bestBid()
	ask, hasAsk := b.bestAsk()
	if !hasBid || !hasAsk {
		return true
	}
	return bid.Price.Cmp(ask.Price) < 0
}

// BookView is a read-only, defensive-copy snapshot of a book for callers
// outside the package.
type BookView struct {
	MarketID    string
	AssetID     string
	Bids        []Level
	Asks        []Level
	TimestampMs int64
	Hash        string
}

func (b *book) view() BookView {
	return BookView{
		MarketID:    b.marketID,
		AssetID:     b.assetID,
		Bids:        b.bids.snapshot(),
		Asks:        b.asks.snapshot(),
		TimestampMs: b.timestampMs,
		Hash:        b.hash,
	}
}

// BestAsk returns the best (lowest) ask on this view, if any.
func (v BookView) BestAsk() (Level, bool) {
	if len(v.Asks) == 0 {
		return Level{}, false
	}
	return v.Asks[0], true
}

// BestBid returns the best (highest) bid on this view, if any.
func (v BookView) BestBid() (Level, bool) {
	if len(v.Bids) == 0 {
		return Level{}, false
	}
	return v.Bids[0], true
}
