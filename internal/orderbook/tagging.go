package orderbook

// TaggingStrategy decides, for a market that just transitioned to exactly
// two books, which asset is Yes and which is No. It is a pluggable
// function value rather than a hard-coded rule because the spec's Open
// Questions flag the default heuristic as brittle for symmetric books.
//
// first/second are passed in insertion order so a strategy
// can implement the tie-break ("first-inserted is Yes") without needing
// access to store internals.
type TaggingStrategy func(first, second *book) (yesAssetID string)

// DefaultTaggingStrategy assigns Yes to the book with strictly more bid
// levels than ask levels, No to the other; ties favor the first-inserted
// book as Yes, matching §3 exactly.
func DefaultTaggingStrategy(first, second *book) string {
	firstSkew := first.bids.count() - first.asks.count()
	secondSkew := second.bids.count() - second.asks.count()

	if firstSkew > secondSkew {
		return first.assetID
	}
	if secondSkew > firstSkew {
		return second.assetID
	}
	return first.assetID
}
