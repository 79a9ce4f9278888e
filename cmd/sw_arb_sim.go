package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/internal/discovery"
	"github.com/mselser95/predmarket-arb/internal/markets"
	"github.com/mselser95/predmarket-arb/pkg/config"
)

const (
	swMarketRefreshInterval = 120 * time.Second
	swScanInterval          = 10 * time.Second
	swStatsInterval         = 30 * time.Second
)

//nolint:gochecknoglobals // Cobra boilerplate
var swArbSimCmd = &cobra.Command{
	Use:   "sw-sim",
	Short: "Standalone short-window arbitrage simulator",
	Long: `Polls the catalog REST API (no WebSocket) for short-window markets —
expiring soon and matching the up/down lexical pattern — and paper-trades
Sum-<1 edges on their YES/NO best asks. Writes a JSON session dump on exit.`,
	RunE: runShortWindowSim,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(swArbSimCmd)
}

// swTrade is one simulated entry, recorded for the session's JSON dump.
type swTrade struct {
	MarketID         string  `json:"market_id"`
	Question         string  `json:"question"`
	MinutesToExpiry  float64 `json:"minutes_to_expiry"`
	TotalCost        float64 `json:"total_cost"`
	PositionSize     float64 `json:"position_size"`
	NetEdge          float64 `json:"net_edge"`
	NetProfit        float64 `json:"net_profit"`
	AnnualizedReturn float64 `json:"annualized_return"`
	EnteredAt        string  `json:"entered_at"`
}

func runShortWindowSim(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	fmt.Println("================================================================")
	fmt.Println(" short-window arbitrage simulator (REST-polling, paper trading)")
	fmt.Println("================================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("sw-sim-shutdown-signal-received")
		cancel()
	}()

	discClient := discovery.NewClient(cfg.Polymarket.GammaURL, logger)
	metaClient := markets.NewMetadataClient()

	sim := &swSimulator{
		cfg:        cfg,
		logger:     logger,
		discClient: discClient,
		metaClient: metaClient,
		balance:    cfg.Execution.SimStartingBalance,
		sessionID:  time.Now().Unix(),
	}

	sim.refreshMarkets(ctx)

	marketTicker := time.NewTicker(swMarketRefreshInterval)
	scanTicker := time.NewTicker(swScanInterval)
	statsTicker := time.NewTicker(swStatsInterval)
	defer marketTicker.Stop()
	defer scanTicker.Stop()
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			sim.printSummary()
			return sim.exportTrades()
		case <-marketTicker.C:
			sim.refreshMarkets(ctx)
		case <-scanTicker.C:
			sim.scanOnce(ctx)
		case <-statsTicker.C:
			sim.printStats()
		}
	}
}

type swSimulator struct {
	cfg        *config.Config
	logger     *zap.Logger
	discClient *discovery.Client
	metaClient *markets.MetadataClient
	balance    float64
	candidates []candidateMarket
	trades     []swTrade
	sessionID  int64
}

type candidateMarket struct {
	id              string
	question        string
	eventID         string
	yesToken        string
	noToken         string
	minutesToExpiry float64
}

func (s *swSimulator) refreshMarkets(ctx context.Context) {
	resp, err := s.discClient.FetchActiveMarkets(ctx, s.cfg.Discovery.MarketLimit, 0, "endDate")
	if err != nil {
		s.logger.Warn("sw-sim-refresh-failed", zap.Error(err))
		return
	}

	now := time.Now()
	var candidates []candidateMarket
	for _, m := range resp.Data {
		if len(m.Tokens) != 2 {
			continue
		}
		isShortWindow, minutes := arbitrage.IsShortWindowMarket(m, now, s.cfg.Arbitrage.ShortWindowWindowMinutes)
		if !isShortWindow || minutes < s.cfg.Arbitrage.MinMinutesToExpiry {
			continue
		}
		candidates = append(candidates, candidateMarket{
			id:              m.ID,
			question:        m.Question,
			eventID:         m.EventID,
			yesToken:        m.Tokens[0].TokenID,
			noToken:         m.Tokens[1].TokenID,
			minutesToExpiry: minutes,
		})
	}

	s.candidates = candidates
	s.logger.Info("sw-sim-markets-refreshed", zap.Int("candidates", len(candidates)))
}

func (s *swSimulator) scanOnce(ctx context.Context) {
	feeRate := s.cfg.Arbitrage.FeeRate
	minEdge := s.cfg.Arbitrage.ShortWindowMinEdge
	maxSize := s.cfg.Arbitrage.ShortWindowMaxSize
	minLiquidity := s.cfg.Arbitrage.MinLiquidity

	for _, m := range s.candidates {
		yesAsk, err := s.metaClient.FetchBestAsk(ctx, m.yesToken)
		if err != nil || yesAsk.Price == 0 {
			continue
		}
		noAsk, err := s.metaClient.FetchBestAsk(ctx, m.noToken)
		if err != nil || noAsk.Price == 0 {
			continue
		}

		totalCost := yesAsk.Price + noAsk.Price
		if totalCost >= 1.0 {
			continue
		}

		grossEdge := 1.0 - totalCost
		netEdge := grossEdge - feeRate
		if netEdge < minEdge {
			continue
		}

		liquidity := yesAsk.Size
		if noAsk.Size < liquidity {
			liquidity = noAsk.Size
		}
		if liquidity < minLiquidity {
			continue
		}

		positionSize := liquidity
		if positionSize > maxSize {
			positionSize = maxSize
		}
		if positionSize > s.balance {
			positionSize = s.balance
		}
		if positionSize <= 0 {
			continue
		}

		netProfit := positionSize * netEdge
		annualizedReturn := netEdge * (525600.0 / m.minutesToExpiry)

		s.balance -= positionSize * totalCost
		s.balance += positionSize // one side always pays 1 at resolution, modeled as immediate settlement in this paper simulator

		trade := swTrade{
			MarketID:         m.id,
			Question:         m.question,
			MinutesToExpiry:  m.minutesToExpiry,
			TotalCost:        totalCost,
			PositionSize:     positionSize,
			NetEdge:          netEdge,
			NetProfit:        netProfit,
			AnnualizedReturn: annualizedReturn,
			EnteredAt:        time.Now().Format(time.RFC3339),
		}
		s.trades = append(s.trades, trade)
		s.printOpportunity(trade)
	}
}

func (s *swSimulator) printOpportunity(t swTrade) {
	fmt.Println("+--------------------------------------------------------------+")
	fmt.Printf("| short-window entry: %s\n", truncate(t.Question, 58))
	fmt.Printf("| minutes-to-expiry: %.1f   total-cost: %.4f\n", t.MinutesToExpiry, t.TotalCost)
	fmt.Printf("| position: %.2f   net-edge: %.4f   net-profit: %.4f\n", t.PositionSize, t.NetEdge, t.NetProfit)
	fmt.Printf("| annualized-return: %.2f%%\n", t.AnnualizedReturn*100)
	fmt.Println("+--------------------------------------------------------------+")
}

func (s *swSimulator) printStats() {
	total := 0.0
	for _, t := range s.trades {
		total += t.NetProfit
	}
	fmt.Printf("[stats] candidates=%d trades=%d cumulative-net-profit=%.4f balance=%.2f\n",
		len(s.candidates), len(s.trades), total, s.balance)
}

func (s *swSimulator) printSummary() {
	sort.Slice(s.trades, func(i, j int) bool { return s.trades[i].NetProfit > s.trades[j].NetProfit })

	total := 0.0
	for _, t := range s.trades {
		total += t.NetProfit
	}

	fmt.Println("================================================================")
	fmt.Printf(" session summary: %d trades, net profit %.4f, final balance %.2f\n",
		len(s.trades), total, s.balance)
	fmt.Println("================================================================")
}

func (s *swSimulator) exportTrades() error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	path := fmt.Sprintf("logs/sw_arb_sim_%d.json", s.sessionID)
	data, err := json.MarshalIndent(s.trades, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session dump: %w", err)
	}

	s.logger.Info("sw-sim-session-exported", zap.String("path", path), zap.Int("trades", len(s.trades)))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
