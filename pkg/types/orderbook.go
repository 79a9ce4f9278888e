package types

import (
	"encoding/json"
	"strconv"
)

// OrderbookMessage is a full-snapshot frame from the market-data stream
// (event_type "book"): §6.
type OrderbookMessage struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp int64        `json:"-"` // parsed from string via UnmarshalJSON
	Hash      string       `json:"hash,omitempty"`
	Bids      []PriceLevel `json:"bids,omitempty"`
	Asks      []PriceLevel `json:"asks,omitempty"`
	// PriceChanges carries a "price_change" frame's deltas once the
	// transport has re-wrapped a PriceChangeMessage into this envelope
	// for the store's single consumer channel. Never populated by this
	// struct's own UnmarshalJSON: PriceChangeMessage decodes the wire
	// frame, and the transport copies the result in here.
	PriceChanges []PriceChange `json:"-"`
}

// UnmarshalJSON parses the string-encoded millisecond timestamp.
func (o *OrderbookMessage) UnmarshalJSON(data []byte) error {
	type Alias OrderbookMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(o),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		timestamp, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		o.Timestamp = timestamp
	}

	return nil
}

// PriceLevel is a single price level in a full snapshot.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// PriceChangeMessage is a delta frame from the market-data stream
// (event_type "price_change"): §6. It may batch changes for several
// asset_ids sharing the same market.
type PriceChangeMessage struct {
	EventType    string        `json:"event_type"`
	Market       string        `json:"market"`
	Timestamp    int64         `json:"-"` // parsed from string via UnmarshalJSON
	PriceChanges []PriceChange `json:"price_changes"`
}

// UnmarshalJSON parses the string-encoded millisecond timestamp, which is
// optional on this frame (absent ⇒ zero).
func (p *PriceChangeMessage) UnmarshalJSON(data []byte) error {
	type Alias PriceChangeMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		timestamp, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		p.Timestamp = timestamp
	}

	return nil
}

// PriceChange is a single level delta: {asset_id, price, size, side, hash,
// best_bid, best_ask}. Price/Size/Side are absent on pure best-of-book
// refresh frames that only carry best_bid/best_ask.
type PriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price,omitempty"`
	Size    string `json:"size,omitempty"`
	Side    string `json:"side,omitempty"`
	Hash    string `json:"hash,omitempty"`
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
}

// HasLevelDelta reports whether this change carries an explicit
// price/size/side level update (as opposed to only a best-bid/best-ask
// refresh).
func (p PriceChange) HasLevelDelta() bool {
	return p.Price != "" && p.Size != "" && p.Side != ""
}
