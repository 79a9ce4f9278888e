package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/circuitbreaker"
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
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"github.com/mselser95/predmarket-arb/pkg/healthprobe"
	"github.com/mselser95/predmarket-arb/pkg/httpserver"
	"github.com/mselser95/predmarket-arb/pkg/types"
	"github.com/mselser95/predmarket-arb/pkg/wallet"
	"github.com/mselser95/predmarket-arb/pkg/websocket"
)

// New wires every component named in the config surface into a runnable
// App. Nothing is started here — Run starts the goroutines.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	discoveryClient := discovery.NewClient(cfg.Polymarket.GammaURL, logger)
	discoveryService := discovery.New(&discovery.Config{
		Client:            discoveryClient,
		Cache:             marketCache,
		PollInterval:      cfg.Discovery.PollInterval,
		MarketLimit:       cfg.Discovery.MarketLimit,
		MaxMarketDuration: cfg.Discovery.MaxMarketDuration,
		Logger:            logger,
		SingleMarket:      opts.SingleMarket,
	})

	wsPool := websocket.NewPool(websocket.PoolConfig{
		Size:                  cfg.WebSocket.PoolSize,
		WSUrl:                 cfg.Polymarket.WSURL,
		DialTimeout:           cfg.WebSocket.DialTimeout,
		PongTimeout:           cfg.WebSocket.PongTimeout,
		PingInterval:          cfg.WebSocket.PingInterval,
		ReconnectInitialDelay: cfg.WebSocket.ReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WebSocket.ReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WebSocket.ReconnectBackoffMult,
		MessageBufferSize:     cfg.WebSocket.MessageBufferSize,
		Logger:                logger,
	})

	obStore := orderbook.New(orderbook.Config{Logger: logger})

	metadataClient := markets.NewCachedMetadataClient(markets.NewMetadataClient(), marketCache)

	riskMgr := risk.New(toRiskConfig(cfg.Risk, logger))
	detector := arbitrage.NewDetector(toArbitrageConfig(cfg.Arbitrage), riskMgr)

	sink, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	executor, breaker, err := setupExecutor(ctx, cfg, logger, obStore)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup executor: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OrderbookStore:   obStore,
		DiscoveryService: discoveryService,
	})

	a := &App{
		cfg:              cfg,
		logger:           logger,
		healthChecker:    healthChecker,
		httpServer:       httpServer,
		marketCache:      marketCache,
		discoveryService: discoveryService,
		wsPool:           wsPool,
		obStore:          obStore,
		metadataClient:   metadataClient,
		markets:          make(map[string]types.Market),
		riskMgr:          riskMgr,
		detector:         detector,
		executor:         executor,
		circuitBreaker:   breaker,
		sink:             sink,
		ctx:              ctx,
		cancel:           cancel,
	}

	a.scan = scanner.New(scanner.Config{
		Detector:        detector,
		Store:           obStore,
		Interval:        cfg.Scanner.Interval,
		Workers:         cfg.Scanner.Workers,
		MinOutcomes:     cfg.Scanner.MinOutcomes,
		Logger:          logger,
		OnOpportunities: a.onOpportunities,
	})

	if cfg.MarketMaker.Enabled {
		a.marketMaker = marketmaker.New(marketmaker.Config{
			SpreadBPS:          cfg.MarketMaker.SpreadBPS,
			OrderSize:          decimal.NewFromFloat(cfg.MarketMaker.OrderSize),
			MaxOrdersPerMarket: cfg.MarketMaker.MaxOrdersPerMarket,
			RefreshInterval:    cfg.MarketMaker.RefreshInterval,
			Logger:             logger,
		})
	}

	if cfg.VolumeFarmer.Enabled {
		a.volumeFarmer = volumefarmer.New(volumefarmer.Config{
			MaxPrice:          decimal.NewFromFloat(cfg.VolumeFarmer.MaxPrice),
			MinVolumePerTrade: decimal.NewFromFloat(cfg.VolumeFarmer.MinVolumePerTrade),
			DailyBudget:       decimal.NewFromFloat(cfg.VolumeFarmer.DailyBudget),
			InitialBalance:    decimal.NewFromFloat(cfg.VolumeFarmer.InitialBalance),
			Logger:            logger,
		})
	}

	return a, nil
}

func toRiskConfig(rc config.RiskConfig, logger *zap.Logger) risk.Config {
	return risk.Config{
		MaxConcurrentArbs:       rc.MaxConcurrentArbs,
		DailyLossLimit:          decimal.NewFromFloat(rc.DailyLossLimit),
		MaxExposurePerMarket:    decimal.NewFromFloat(rc.MaxExposurePerMarket),
		MaxExposurePerEvent:     decimal.NewFromFloat(rc.MaxExposurePerEvent),
		InventoryDriftThreshold: decimal.NewFromFloat(rc.InventoryDriftThreshold),
		MinLiquidity:            decimal.NewFromFloat(rc.MinLiquidity),
		PositionTimeoutSeconds:  rc.PositionTimeoutSeconds,
		BlacklistedMarkets:      rc.BlacklistedMarkets,
		Logger:                  logger,
	}
}

func toArbitrageConfig(ac config.ArbitrageConfig) arbitrage.Config {
	return arbitrage.Config{
		MinEdge:              decimal.NewFromFloat(ac.MinEdge),
		MinLiquidity:         decimal.NewFromFloat(ac.MinLiquidity),
		MaxArbSize:           decimal.NewFromFloat(ac.MaxArbSize),
		Bankroll:             decimal.NewFromFloat(ac.Bankroll),
		FeeRate:              decimal.NewFromFloat(ac.FeeRate),
		ShortWindowMinEdge:   decimal.NewFromFloat(ac.ShortWindowMinEdge),
		ShortWindowMaxSize:   decimal.NewFromFloat(ac.ShortWindowMaxSize),
		MinMinutesToExpiry:   ac.MinMinutesToExpiry,
		CrossMarketMaxCost:   decimal.NewFromFloat(ac.CrossMarketMaxCost),
		CrossMarketMinProfit: decimal.NewFromFloat(ac.CrossMarketMinProfit),
	}
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.Storage.Mode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.Storage.Host,
			Port:     cfg.Storage.Port,
			User:     cfg.Storage.User,
			Password: cfg.Storage.Password,
			Database: cfg.Storage.Database,
			SSLMode:  cfg.Storage.SSLMode,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// setupExecutor builds the execution-mode-appropriate Executor (§4.8/§4.9)
// and, for live mode, the optional balance circuit breaker gating it.
func setupExecutor(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	store *orderbook.Store,
) (Executor, *circuitbreaker.BalanceCircuitBreaker, error) {
	if cfg.Execution.Mode == "dry-run" {
		logger.Info("executor-disabled-dry-run-mode",
			zap.String("note", "opportunities will be detected and logged only"))
		return nil, nil, nil
	}

	if cfg.Execution.Mode == "sim" {
		return execution.NewSimExecutor(decimal.NewFromFloat(cfg.Execution.SimStartingBalance), logger), nil, nil
	}

	breaker, err := setupCircuitBreaker(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	orderClient, err := execution.NewOrderClient(&execution.OrderClientConfig{
		APIKey:         cfg.Polymarket.APIKey,
		Secret:         cfg.Polymarket.Secret,
		Passphrase:     cfg.Polymarket.Passphrase,
		PrivateKey:     cfg.Polymarket.PrivateKey,
		BaseURL:        cfg.Polymarket.ClobURL,
		RequestTimeout: cfg.Execution.SubmitTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create order client: %w", err)
	}

	live := execution.NewLiveExecutor(execution.LiveConfig{
		OrderClient:       orderClient,
		Store:             store,
		CircuitBreaker:    breaker,
		SlippageTolerance: decimal.NewFromFloat(cfg.Execution.SlippageTolerance),
		SubmitTimeout:     cfg.Execution.SubmitTimeout,
		VerifyTimeout:     cfg.Execution.VerifyTimeout,
		Logger:            logger,
	})

	return live, breaker, nil
}

func setupCircuitBreaker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !cfg.CircuitBreaker.Enabled {
		return nil, nil
	}

	privateKeyHex := cfg.Polymarket.PrivateKey
	if privateKeyHex == "" {
		logger.Warn("circuit-breaker-disabled-no-private-key")
		return nil, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		logger.Warn("circuit-breaker-disabled-invalid-key", zap.Error(err))
		return nil, nil
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		logger.Warn("circuit-breaker-disabled-key-cast-failed")
		return nil, nil
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	rpcURL := cfg.CircuitBreaker.PolygonRPCURL
	if rpcURL == "" {
		rpcURL = "https://polygon-rpc.com"
	}

	walletClient, err := wallet.NewClient(rpcURL, logger)
	if err != nil {
		logger.Warn("circuit-breaker-disabled-wallet-client-failed", zap.Error(err))
		return nil, nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreaker.CheckInterval,
		TradeMultiplier: cfg.CircuitBreaker.TradeMultiplier,
		MinAbsolute:     cfg.CircuitBreaker.MinAbsolute,
		HysteresisRatio: cfg.CircuitBreaker.HysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create circuit breaker: %w", err)
	}

	breaker.Start(ctx)
	logger.Info("circuit-breaker-enabled",
		zap.Duration("check-interval", cfg.CircuitBreaker.CheckInterval),
		zap.Float64("trade-multiplier", cfg.CircuitBreaker.TradeMultiplier),
		zap.Float64("min-absolute", cfg.CircuitBreaker.MinAbsolute),
		zap.Float64("hysteresis-ratio", cfg.CircuitBreaker.HysteresisRatio))

	return breaker, nil
}

// onOpportunities is the scanner's merge point into the risk gate and
// execution path: it runs on the scanner's own goroutine, so the risk
// manager's internal mutex is what keeps admission/recording serialised
// (§4.7, §5).
func (a *App) onOpportunities(opps []arbitrage.Opportunity) {
	for _, op := range opps {
		a.admitAndExecute(op)
	}
}

func (a *App) admitAndExecute(op arbitrage.Opportunity) {
	riskOp := op.ToRiskOpportunity()
	if !a.riskMgr.CanExecute(riskOp) {
		return
	}

	outcome := risk.ExecutionOutcome{}
	if a.executor != nil {
		result := a.executor.Execute(a.ctx, op)
		outcome.Filled = result.Filled
		if result.Filled {
			outcome.RealizedPnl = op.NetProfit
		}
	}
	a.riskMgr.RecordExecution(riskOp, outcome)

	storeCtx, storeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer storeCancel()
	if err := a.sink.StoreOpportunity(storeCtx, &op); err != nil {
		a.logger.Warn("store-opportunity-failed", zap.String("market-id", op.MarketID), zap.Error(err))
	}
}
