package testutil

import (
	"time"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// CreateTestMarket creates a test market with YES and NO tokens.
func CreateTestMarket(id string, slug string, question string) *types.Market {
	return &types.Market{
		ID:          id,
		Slug:        slug,
		Question:    question,
		Closed:      false,
		Active:      true,
		Outcomes:    `["Yes", "No"]`,              // API format
		ClobTokens:  `["` + id + `-yes", "` + id + `-no"]`, // API format
		Tokens: []types.Token{
			{TokenID: id + "-yes", Outcome: "Yes", Price: 0.52},
			{TokenID: id + "-no", Outcome: "No", Price: 0.48},
		},
		CreatedAt:   time.Now(),
		Description: "Test market: " + question,
	}
}

// CreateTestOrderbookMessage creates a test orderbook message.
func CreateTestOrderbookMessage(eventType string, assetID string, marketID string) *types.OrderbookMessage {
	return &types.OrderbookMessage{
		EventType: eventType,
		Market:    marketID,
		AssetID:   assetID,
		Timestamp: time.Now().Unix(),
		Bids: []types.PriceLevel{
			{Price: "0.52", Size: "100.0"},
			{Price: "0.51", Size: "50.0"},
		},
		Asks: []types.PriceLevel{
			{Price: "0.53", Size: "100.0"},
			{Price: "0.54", Size: "50.0"},
		},
	}
}

// CreateTestBookMessage creates a "book" type orderbook message.
func CreateTestBookMessage(assetID string, marketID string) *types.OrderbookMessage {
	return CreateTestOrderbookMessage("book", assetID, marketID)
}

// CreateTestPriceChangeMessage creates a "price_change" delta frame
// wrapped in the OrderbookMessage envelope the transport hands the
// store, matching what Manager.readLoop produces from a wire
// PriceChangeMessage.
func CreateTestPriceChangeMessage(assetID string, marketID string) *types.OrderbookMessage {
	return &types.OrderbookMessage{
		EventType: "price_change",
		Market:    marketID,
		Timestamp: time.Now().Unix(),
		PriceChanges: []types.PriceChange{
			{AssetID: assetID, Price: "0.51", Size: "75.0", Side: "BUY"},
		},
	}
}

// CreateTestOpportunity creates a test binary-market arbitrage opportunity:
// YES ask 0.48 + NO ask 0.51, summing below 1 after the two-edge cost.
func CreateTestOpportunity(marketID string, eventID string) *arbitrage.Opportunity {
	edges := []arbitrage.Edge{
		{
			AssetID:      "test-yes-token-" + marketID,
			Outcome:      "YES",
			Price:        decimal.NewFromFloat(0.48),
			Size:         decimal.NewFromFloat(100.0),
			ExpectedCost: decimal.NewFromFloat(48.0),
		},
		{
			AssetID:      "test-no-token-" + marketID,
			Outcome:      "NO",
			Price:        decimal.NewFromFloat(0.51),
			Size:         decimal.NewFromFloat(100.0),
			ExpectedCost: decimal.NewFromFloat(51.0),
		},
	}

	return &arbitrage.Opportunity{
		MarketID:     marketID,
		EventID:      eventID,
		Kind:         arbitrage.KindBinary,
		Edges:        edges,
		TotalEdge:    decimal.NewFromFloat(0.01),
		MinLiquidity: decimal.NewFromFloat(100.0),
		PositionSize: decimal.NewFromFloat(100.0),
		NetProfit:    decimal.NewFromFloat(0.8),
		FeeCost:      decimal.NewFromFloat(0.2),
		TimestampMs:  time.Now().UnixMilli(),
	}
}

// CreateArbitrageOrderbooks returns YES/NO ask-side levels whose prices sum
// to 0.99, the shape a caller feeds into orderbook.Store.ApplySnapshot for a
// binary market. The 1% gap is below the default 2% fee, so the detector
// with DefaultConfig reports no opportunity on these levels.
func CreateArbitrageOrderbooks() (yesAsks, noAsks []orderbook.Level) {
	yesAsks = []orderbook.Level{{Price: decimal.NewFromFloat(0.48), Size: decimal.NewFromFloat(100.0)}}
	noAsks = []orderbook.Level{{Price: decimal.NewFromFloat(0.51), Size: decimal.NewFromFloat(100.0)}}
	return yesAsks, noAsks
}

// CreateMarketsResponse creates a test markets response from Gamma API.
func CreateMarketsResponse(markets ...*types.Market) *types.MarketsResponse {
	data := make([]types.Market, len(markets))
	for i, m := range markets {
		data[i] = *m
	}

	return &types.MarketsResponse{
		Data:   data,
		Count:  len(markets),
		Limit:  50,
		Offset: 0,
	}
}
