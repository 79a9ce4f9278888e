//go:build integration
// +build integration

package app

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/discovery"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/internal/testutil"
	"github.com/mselser95/predmarket-arb/pkg/cache"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

// TestE2E_ArbitrageFlow drives discovery of a mock market followed by
// order-book updates that form a binary arbitrage, and confirms the
// detector/risk-gate pipeline admits it.
func TestE2E_ArbitrageFlow(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	market := testutil.CreateTestMarket("market1", "test-slug", "Will X happen?")
	yesToken := market.GetTokenByOutcome("YES")
	noToken := market.GetTokenByOutcome("NO")
	if yesToken == nil || noToken == nil {
		t.Fatal("test market missing YES or NO token")
	}

	mockAPI := testutil.NewMockGammaAPI([]*types.Market{market})
	defer mockAPI.Close()

	cacheInterface, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cacheInterface.Close()

	discoveryClient := discovery.NewClient(mockAPI.URL, logger)
	discoverySvc := discovery.New(&discovery.Config{
		Client:       discoveryClient,
		Cache:        cacheInterface,
		PollInterval: 1 * time.Second,
		MarketLimit:  10,
		Logger:       logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	discoverCtx, discoverCancel := context.WithCancel(ctx)
	defer discoverCancel()

	go func() {
		_ = discoverySvc.Run(discoverCtx)
	}()

	select {
	case <-discoverySvc.NewMarketsChan():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for market discovery")
	}

	subs := discoverySvc.GetSubscribedMarkets()
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscribed market, got %d", len(subs))
	}

	store := orderbook.New(orderbook.Config{Logger: logger})
	now := time.Now()
	store.ApplySnapshot(market.ID, yesToken.TokenID,
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.47), Size: decimal.NewFromFloat(100)}},
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.48), Size: decimal.NewFromFloat(100)}},
		now.UnixMilli(), "hash-yes")
	store.ApplySnapshot(market.ID, noToken.TokenID,
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.44), Size: decimal.NewFromFloat(100)}},
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.45), Size: decimal.NewFromFloat(100)}},
		now.UnixMilli(), "hash-no")

	riskMgr := risk.New(risk.Config{MaxConcurrentArbs: 10, Logger: logger})
	cfg := arbitrage.DefaultConfig()
	cfg.MinEdge = decimal.NewFromFloat(0.005)
	detector := arbitrage.NewDetector(cfg, riskMgr)

	op := detector.DetectSingleMarket(store, market.ID, market.EventID, decimal.Zero, now)
	if op == nil {
		t.Fatal("expected at least one detected opportunity")
	}
	if op.TotalEdge.Cmp(decimal.Zero) <= 0 {
		t.Errorf("expected positive edge, got %s", op.TotalEdge.String())
	}

	t.Logf("arbitrage opportunity detected: market=%s edge=%s", market.Slug, op.TotalEdge.String())
}

// TestE2E_MarketDiscoveryFlow tests the market discovery and subscription flow.
func TestE2E_MarketDiscoveryFlow(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	market1 := testutil.CreateTestMarket("market1", "market-1", "Will A happen?")
	market2 := testutil.CreateTestMarket("market2", "market-2", "Will B happen?")
	market3 := testutil.CreateTestMarket("market3", "market-3", "Will C happen?")

	mockAPI := testutil.NewMockGammaAPI([]*types.Market{market1, market2})
	defer mockAPI.Close()

	cacheInterface, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	defer cacheInterface.Close()

	discoveryClient := discovery.NewClient(mockAPI.URL, logger)
	discoverySvc := discovery.New(&discovery.Config{
		Client:       discoveryClient,
		Cache:        cacheInterface,
		PollInterval: 500 * time.Millisecond,
		MarketLimit:  10,
		Logger:       logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		_ = discoverySvc.Run(ctx)
	}()

	marketsDiscovered := 0
	timeout := time.After(3 * time.Second)

discoveryLoop:
	for marketsDiscovered < 2 {
		select {
		case <-discoverySvc.NewMarketsChan():
			marketsDiscovered++
		case <-timeout:
			t.Fatalf("timeout waiting for initial market discovery (got %d/2)", marketsDiscovered)
		case <-ctx.Done():
			break discoveryLoop
		}
	}

	subs := discoverySvc.GetSubscribedMarkets()
	if len(subs) != 2 {
		t.Errorf("expected 2 subscribed markets after first poll, got %d", len(subs))
	}

	mockAPI.AddMarket(market3)

	select {
	case market := <-discoverySvc.NewMarketsChan():
		if market.Slug != "market-3" {
			t.Errorf("expected market-3, got %s", market.Slug)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for differential market")
	}

	subs = discoverySvc.GetSubscribedMarkets()
	if len(subs) != 3 {
		t.Errorf("expected 3 subscribed markets after differential discovery, got %d", len(subs))
	}

	select {
	case <-discoverySvc.NewMarketsChan():
		t.Error("unexpected market from channel after all markets discovered")
	case <-time.After(1 * time.Second):
	}
}

// TestE2E_OrderbookStoreProcessing tests order-book store snapshot/delta
// processing directly against orderbook.Store.
func TestE2E_OrderbookStoreProcessing(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	store := orderbook.New(orderbook.Config{Logger: logger})

	now := time.Now()
	ok := store.ApplySnapshot("market-1", "token-1",
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.52), Size: decimal.NewFromFloat(100)}},
		[]orderbook.Level{{Price: decimal.NewFromFloat(0.53), Size: decimal.NewFromFloat(100)}},
		now.UnixMilli(), "hash-1")
	if !ok {
		t.Fatal("expected snapshot to apply")
	}

	book, exists := store.Book("market-1", "token-1")
	if !exists {
		t.Fatal("expected book to exist")
	}
	bestBid, hasBid := book.BestBid()
	if !hasBid || bestBid.Price.Cmp(decimal.NewFromFloat(0.52)) != 0 {
		t.Fatalf("expected best bid 0.52, got %v (has=%v)", bestBid.Price, hasBid)
	}

	ok = store.ApplyDelta("market-1", "token-1", decimal.NewFromFloat(0.51), decimal.NewFromFloat(150), types.SideBuy, now.Add(time.Millisecond).UnixMilli())
	if !ok {
		t.Fatal("expected delta to apply")
	}

	book, exists = store.Book("market-1", "token-1")
	if !exists {
		t.Fatal("expected book to still exist after delta")
	}
	bestBid, hasBid = book.BestBid()
	if !hasBid || bestBid.Price.Cmp(decimal.NewFromFloat(0.52)) != 0 {
		t.Fatalf("expected best bid to remain 0.52 after a deeper-book delta, got %v", bestBid.Price)
	}
}
