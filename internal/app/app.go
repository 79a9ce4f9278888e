package app

import (
	"context"
	"sync"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/circuitbreaker"
	"github.com/mselser95/predmarket-arb/internal/correlation"
	"github.com/mselser95/predmarket-arb/internal/discovery"
	"github.com/mselser95/predmarket-arb/internal/execution"
	"github.com/mselser95/predmarket-arb/internal/markets"
	"github.com/mselser95/predmarket-arb/internal/marketmaker"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/internal/risk"
	"github.com/mselser95/predmarket-arb/internal/scanner"
	"github.com/mselser95/predmarket-arb/internal/storage"
	"github.com/mselser95/predmarket-arb/internal/volumefarmer"
	"github.com/mselser95/predmarket-arb/pkg/cache"
	"github.com/mselser95/predmarket-arb/pkg/config"
	"github.com/mselser95/predmarket-arb/pkg/healthprobe"
	"github.com/mselser95/predmarket-arb/pkg/httpserver"
	"github.com/mselser95/predmarket-arb/pkg/types"
	"github.com/mselser95/predmarket-arb/pkg/websocket"
	"go.uber.org/zap"
)

// Executor is the common surface LiveExecutor and SimExecutor both satisfy
// (§4.9: "identical inputs and outputs"), letting App swap execution mode
// on config alone.
type Executor interface {
	Execute(ctx context.Context, op arbitrage.Opportunity) execution.Result
}

// App is the pipeline orchestrator: discovery feeds the websocket pool,
// the pool feeds the orderbook store, the scanner and the binary/short-
// window loops read the store and hand opportunities to the risk gate,
// and admitted opportunities go to the executor and the storage sink.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	marketCache      cache.Cache
	discoveryService *discovery.Service
	wsPool           *websocket.Pool
	obStore          *orderbook.Store
	metadataClient   *markets.CachedMetadataClient

	graphMu sync.RWMutex
	graph   *correlation.Graph

	marketsMu sync.RWMutex
	markets   map[string]types.Market

	riskMgr  *risk.Manager
	detector *arbitrage.Detector
	scan     *scanner.Scanner

	executor       Executor
	circuitBreaker *circuitbreaker.BalanceCircuitBreaker

	marketMaker  *marketmaker.MarketMaker
	volumeFarmer *volumefarmer.VolumeFarmer

	sink storage.Storage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: slug of single market to track
}
