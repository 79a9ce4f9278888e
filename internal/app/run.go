package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/correlation"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/types"
)

const (
	graphRebuildInterval    = 30 * time.Second
	binaryScanInterval      = 200 * time.Millisecond
	marketMakerTickInterval = 10 * time.Second
	volumeFarmerTickInterval = 15 * time.Second
)

// Run wires every background loop and blocks until a shutdown signal or a
// fatal startup error. The pipeline reads left to right: discovery feeds
// the websocket pool, the pool's messages feed the orderbook store, the
// store feeds both the periodic scanner and the binary/short-window loop,
// and both hand opportunities to admitAndExecute.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("execution-mode", a.cfg.Execution.Mode),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	// Give the HTTP server a moment to bind before marking ready.
	time.Sleep(100 * time.Millisecond)

	if err := a.wsPool.Start(); err != nil {
		return err
	}

	a.wg.Add(1)
	go a.runDiscoveryService()

	a.wg.Add(1)
	go a.handleNewMarkets()

	a.wg.Add(1)
	go a.feedOrderbookStore()

	a.wg.Add(1)
	go a.runGraphRebuildLoop()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.scan.Run(a.ctx, a.snapshotMarkets)
	}()

	a.wg.Add(1)
	go a.runBinaryAndShortWindowLoop()

	if a.marketMaker != nil {
		a.wg.Add(1)
		go a.runMarketMakerLoop()
	}

	if a.volumeFarmer != nil {
		a.wg.Add(1)
		go a.runVolumeFarmerLoop()
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runDiscoveryService() {
	defer a.wg.Done()
	err := a.discoveryService.Run(a.ctx)
	if err != nil && !errors.Is(err, a.ctx.Err()) {
		a.logger.Error("discovery-service-error", zap.Error(err))
	}
}

// feedOrderbookStore drains the websocket pool's multiplexed stream into
// the store. "book" frames replace a ladder wholesale via ApplySnapshot;
// "price_change" frames upsert one level at a time via ApplyDelta.
func (a *App) feedOrderbookStore() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case msg, ok := <-a.wsPool.MessageChan():
			if !ok {
				return
			}
			a.applyOrderbookMessage(msg)
		}
	}
}

func (a *App) applyOrderbookMessage(msg *types.OrderbookMessage) {
	if msg.EventType == "price_change" {
		a.applyPriceChanges(msg)
		return
	}

	bids, ok := toLevels(msg.Bids)
	if !ok {
		a.logger.Debug("orderbook-message-bad-levels", zap.String("asset-id", msg.AssetID), zap.String("side", "bids"))
		return
	}
	asks, ok := toLevels(msg.Asks)
	if !ok {
		a.logger.Debug("orderbook-message-bad-levels", zap.String("asset-id", msg.AssetID), zap.String("side", "asks"))
		return
	}

	a.obStore.ApplySnapshot(msg.Market, msg.AssetID, bids, asks, msg.Timestamp, msg.Hash)
}

// applyPriceChanges upserts each level delta in a batched price_change
// frame. Entries that only refresh best_bid/best_ask (no explicit
// price/size/side) carry nothing applyDelta can act on and are skipped.
func (a *App) applyPriceChanges(msg *types.OrderbookMessage) {
	for _, change := range msg.PriceChanges {
		if !change.HasLevelDelta() {
			continue
		}

		price, err := decimal.NewFromString(change.Price)
		if err != nil {
			a.logger.Debug("price-change-bad-price", zap.String("asset-id", change.AssetID), zap.String("price", change.Price))
			continue
		}
		size, err := decimal.NewFromString(change.Size)
		if err != nil {
			a.logger.Debug("price-change-bad-size", zap.String("asset-id", change.AssetID), zap.String("size", change.Size))
			continue
		}

		side := types.ParseSide(change.Side)
		a.obStore.ApplyDelta(msg.Market, change.AssetID, price, size, side, msg.Timestamp)
	}
}

func toLevels(raw []types.PriceLevel) ([]orderbook.Level, bool) {
	out := make([]orderbook.Level, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl.Price)
		if err != nil {
			return nil, false
		}
		size, err := decimal.NewFromString(lvl.Size)
		if err != nil {
			return nil, false
		}
		out = append(out, orderbook.Level{Price: price, Size: size})
	}
	return out, true
}

// runGraphRebuildLoop rebuilds the correlation graph from the live market
// set on a fixed cadence: the catalog is small enough that rebuilding
// wholesale is simpler and cheaper than incremental edge maintenance.
func (a *App) runGraphRebuildLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(graphRebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			graph := correlation.Build(a.snapshotMarkets())

			a.graphMu.Lock()
			a.graph = graph
			a.graphMu.Unlock()

			a.scan.SetGraph(graph)
		}
	}
}

// runBinaryAndShortWindowLoop covers the two cases the periodic scanner
// skips: binary (2-token) markets, which fall below its MinOutcomes floor,
// and short-window markets, which need the expiry-aware detector instead
// of the general single-market one.
func (a *App) runBinaryAndShortWindowLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(binaryScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			a.scanBinaryAndShortWindow(now)
		}
	}
}

func (a *App) scanBinaryAndShortWindow(now time.Time) {
	windowMinutes := a.cfg.Arbitrage.ShortWindowWindowMinutes

	for _, m := range a.snapshotMarkets() {
		if len(m.Tokens) != 2 {
			continue
		}

		if isShortWindow, minutesToExpiry := arbitrage.IsShortWindowMarket(m, now, windowMinutes); isShortWindow {
			if minutesToExpiry < a.cfg.Arbitrage.MinMinutesToExpiry {
				continue
			}
			if op := a.detector.DetectShortWindow(a.obStore, m.ID, m.EventID, minutesToExpiry, now); op != nil && a.detector.PassesQualityGate(*op) {
				a.admitAndExecute(*op)
			}
			continue
		}

		if op := a.detector.DetectSingleMarket(a.obStore, m.ID, m.EventID, decimal.Zero, now); op != nil && a.detector.PassesQualityGate(*op) {
			a.admitAndExecute(*op)
		}
	}
}

func (a *App) runMarketMakerLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(marketMakerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			opps := a.marketMaker.FindOpportunities(a.obStore, a.snapshotMarkets())
			orders := a.marketMaker.PlaceQuotes(opps)
			if len(orders) > 0 {
				a.logger.Info("market-maker-quotes-placed", zap.Int("count", len(orders)))
			}
			a.marketMaker.SimulateFills(a.obStore)
			a.marketMaker.RefreshStale(now)
		}
	}
}

func (a *App) runVolumeFarmerLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(volumeFarmerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			if a.volumeFarmer.ShouldResetBudget(now) {
				a.volumeFarmer.ResetDailyBudget()
			}

			opps := a.volumeFarmer.FindOpportunities(a.obStore, a.snapshotMarkets())
			for _, op := range opps {
				if _, filled := a.volumeFarmer.Execute(op); filled {
					a.logger.Info("volume-farmer-trade-executed", zap.String("market-id", op.MarketID))
				}
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
