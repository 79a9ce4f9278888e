// Package orderbook implements the per-asset order book and the
// market-keyed store that holds them, grounded on the best-bid/ask tracker
// in mselser95-polymarket-arb's internal/orderbook/manager.go but
// generalized from best-of-book to full sorted price ladders as the data
// model requires.
package orderbook

import (
	"sort"

	"github.com/mselser95/predmarket-arb/pkg/decimal"
)

// Level is one {price, size} pair, used for snapshot construction and
// reads.
type Level struct {
	Price decimal.D
	Size  decimal.D
}

// side selects ladder ordering: bids sort descending-best, asks ascending-best.
type side int

const (
	sideBid side = iota
	sideAsk
)

// ladder is a sorted Price→Size map. Levels live inline in a slice (an
// arena, not a pointer graph) so there is never a cross-book pointer.
type ladder struct {
	kind   side
	levels []Level // sorted best-first
}

func newLadder(kind side) *ladder {
	return &ladder{kind: kind}
}

// less reports whether price a ranks ahead of price b for this ladder's
// ordering (descending for bids, ascending for asks).
func (l *ladder) less(a, b decimal.D) bool {
	if l.kind == sideBid {
		return a.Cmp(b) > 0
	}
	return a.Cmp(b) < 0
}

// upsert sets the size at price, or removes the level when size is zero.
// Levels are kept sorted best-first via insertion into the slice.
func (l *ladder) upsert(price, size decimal.D) {
	idx := sort.Search(len(l.levels), func(i int) bool {
		return !l.less(l.levels[i].Price, price)
	})

	found := idx < len(l.levels) && l.levels[idx].Price.Equal(price)

	if decimal.IsZero(size) {
		if found {
			l.levels = append(l.levels[:idx], l.levels[idx+1:]...)
		}
		return
	}

	if found {
		l.levels[idx].Size = size
		return
	}

	l.levels = append(l.levels, Level{})
	copy(l.levels[idx+1:], l.levels[idx:])
	l.levels[idx] = Level{Price: price, Size: size}
}

// replace discards the current levels and installs a fresh, sorted copy of
// levels (used by apply_snapshot).
func (l *ladder) replace(levels []Level) {
	sorted := make([]Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool {
		return l.less(sorted[i].Price, sorted[j].Price)
	})
	l.levels = sorted
}

// best returns the top-of-book level, if any.
func (l *ladder) best() (Level, bool) {
	if len(l.levels) == 0 {
		return Level{}, false
	}
	return l.levels[0], true
}

// snapshot returns a defensive copy of all levels, best-first.
func (l *ladder) snapshot() []Level {
	out := make([]Level, len(l.levels))
	copy(out, l.levels)
	return out
}

// count returns the number of distinct price levels.
func (l *ladder) count() int {
	return len(l.levels)
}
