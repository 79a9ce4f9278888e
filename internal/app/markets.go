package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/pkg/types"
)

// handleNewMarkets drains the discovery service's new-market channel,
// subscribing each one's tokens on the websocket pool and adding it to the
// live market set the scanner and correlation graph read from.
func (a *App) handleNewMarkets() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case market, ok := <-a.discoveryService.NewMarketsChan():
			if !ok {
				return
			}
			a.subscribeToMarket(market)
		}
	}
}

func (a *App) subscribeToMarket(market *types.Market) {
	tokenIDs := make([]string, 0, len(market.Tokens))
	for _, tok := range market.Tokens {
		if tok.TokenID != "" {
			tokenIDs = append(tokenIDs, tok.TokenID)
		}
	}
	if len(tokenIDs) < 2 {
		a.logger.Warn("market-missing-tokens",
			zap.String("market-id", market.ID), zap.String("slug", market.Slug))
		return
	}

	if err := a.wsPool.Subscribe(a.ctx, tokenIDs); err != nil {
		a.logger.Error("subscribe-failed",
			zap.String("market-id", market.ID), zap.String("slug", market.Slug), zap.Error(err))
		return
	}

	a.enrichTokenMetadata(market)

	a.marketsMu.Lock()
	a.markets[market.ID] = *market
	a.marketsMu.Unlock()

	a.logger.Info("subscribed-to-market",
		zap.String("slug", market.Slug),
		zap.String("question", market.Question),
		zap.Int("tokens", len(tokenIDs)))
}

// enrichTokenMetadata fills in the market's tick size and minimum order
// size from the CLOB metadata endpoint, best-effort: a lookup failure just
// leaves the zero-valued defaults the catalog response already carries.
func (a *App) enrichTokenMetadata(market *types.Market) {
	if a.metadataClient == nil || len(market.Tokens) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()

	tickSize, minOrderSize, err := a.metadataClient.GetTokenMetadata(ctx, market.Tokens[0].TokenID)
	if err != nil {
		a.logger.Debug("token-metadata-fetch-failed",
			zap.String("token-id", market.Tokens[0].TokenID), zap.Error(err))
		return
	}
	market.TickSize = tickSize
	market.MinOrderSize = minOrderSize
}

// snapshotMarkets returns the current live market list, the input the
// scanner and the binary/short-window loop both scan.
func (a *App) snapshotMarkets() []types.Market {
	a.marketsMu.RLock()
	defer a.marketsMu.RUnlock()

	out := make([]types.Market, 0, len(a.markets))
	for _, m := range a.markets {
		out = append(out, m)
	}
	return out
}
