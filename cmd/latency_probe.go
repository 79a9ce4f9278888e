package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/discovery"
	"github.com/mselser95/predmarket-arb/internal/execution"
	"github.com/mselser95/predmarket-arb/internal/markets"
	"github.com/mselser95/predmarket-arb/pkg/config"
	"github.com/mselser95/predmarket-arb/pkg/types"
	"github.com/mselser95/predmarket-arb/pkg/wallet"
)

const (
	latencyProbeFOKBatchSize = 10
	latencyFOKWarnThreshold  = 400 * time.Millisecond
	latencyFOKGoodThreshold  = 200 * time.Millisecond
	latencyProbeTokenAmount  = "1000000" // 1 share, 6-decimal units
)

//nolint:gochecknoglobals // Cobra boilerplate
var latencyProbeCmd = &cobra.Command{
	Use:   "latency-probe",
	Short: "Measure build/sign/submit latency for real order placement",
	Long: `Places small live FOK and GTC test orders against a real order-book-enabled
market, timing each order end to end (build, sign and submit together), then
cancels any resting GTC orders and reports a verdict against the 400ms warning
and 200ms good thresholds.`,
	RunE: runLatencyProbe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(latencyProbeCmd)
}

func runLatencyProbe(cmd *cobra.Command, args []string) error {
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
	fmt.Println(" latency probe: real order build/sign/submit timing")
	fmt.Println("================================================================")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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
		return fmt.Errorf("create order client: %w", err)
	}

	tokenID, marketID, price, err := findProbeToken(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("find probe token: %w", err)
	}
	fmt.Printf("probe token: %s (best ask %.4f)\n", tokenID, price)

	if resp, timing, err := timedPlaceGTC(ctx, orderClient, tokenID); err != nil {
		logger.Warn("gtc-probe-failed", zap.Error(err))
	} else {
		fmt.Printf("GTC:  submit=%-10s order-id=%s\n", timing, resp.OrderID)
	}

	fokTimings := make([]time.Duration, 0, latencyProbeFOKBatchSize)
	for i := 0; i < latencyProbeFOKBatchSize; i++ {
		_, timing, err := timedPlaceFOK(ctx, orderClient, tokenID)
		if err != nil {
			logger.Debug("fok-probe-iteration-failed", zap.Int("iteration", i), zap.Error(err))
			continue
		}
		fokTimings = append(fokTimings, timing)
	}

	printFOKStats(fokTimings)
	printVerdict(fokTimings)

	if err := orderClient.CancelAll(ctx, marketID); err != nil {
		logger.Warn("cancel-all-failed", zap.Error(err))
	} else {
		fmt.Println("cancelled all resting GTC test orders")
	}

	reportBalance(ctx, cfg, logger)

	return nil
}

func findProbeToken(ctx context.Context, cfg *config.Config, logger *zap.Logger) (tokenID, marketID string, bestAsk float64, err error) {
	discClient := discovery.NewClient(cfg.Polymarket.GammaURL, logger)
	metaClient := markets.NewMetadataClient()

	resp, err := discClient.FetchActiveMarkets(ctx, cfg.Discovery.MarketLimit, 0, "volume")
	if err != nil {
		return "", "", 0, fmt.Errorf("fetch active markets: %w", err)
	}

	for _, m := range resp.Data {
		if len(m.Tokens) == 0 {
			continue
		}
		ask, err := metaClient.FetchBestAsk(ctx, m.Tokens[0].TokenID)
		if err != nil || ask.Price <= 0 || ask.Price >= 1 {
			continue
		}
		return m.Tokens[0].TokenID, m.ID, ask.Price, nil
	}

	return "", "", 0, fmt.Errorf("no order-book-enabled market found")
}

func timedPlaceGTC(ctx context.Context, c *execution.OrderClient, tokenID string) (*types.OrderSubmissionResponse, time.Duration, error) {
	start := time.Now()
	resp, err := c.PlaceGTC(ctx, tokenID, latencyProbeTokenAmount, latencyProbeTokenAmount)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	return resp, elapsed, nil
}

func timedPlaceFOK(ctx context.Context, c *execution.OrderClient, tokenID string) (*types.OrderSubmissionResponse, time.Duration, error) {
	start := time.Now()
	resp, err := c.PlaceFOK(ctx, tokenID, latencyProbeTokenAmount, latencyProbeTokenAmount)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	return resp, elapsed, nil
}

func printFOKStats(timings []time.Duration) {
	if len(timings) == 0 {
		fmt.Println("no successful FOK submissions to report")
		return
	}

	var sum, min, max time.Duration
	min = timings[0]
	for _, t := range timings {
		sum += t
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	avg := time.Duration(int64(sum) / int64(len(timings)))

	fmt.Printf("FOK batch (%d/%d succeeded): avg=%s min=%s max=%s\n",
		len(timings), latencyProbeFOKBatchSize, avg, min, max)
}

func printVerdict(timings []time.Duration) {
	if len(timings) == 0 {
		return
	}
	var sum time.Duration
	for _, t := range timings {
		sum += t
	}
	avg := time.Duration(int64(sum) / int64(len(timings)))

	fmt.Println("----------------------------------------------------------------")
	switch {
	case avg <= latencyFOKGoodThreshold:
		fmt.Printf("verdict: avg submit %s is well under the %s claim — taker fills are fast on this venue\n",
			avg, latencyFOKWarnThreshold)
	case avg <= latencyFOKWarnThreshold:
		fmt.Printf("verdict: avg submit %s is under the %s claim but above the %s good mark\n",
			avg, latencyFOKWarnThreshold, latencyFOKGoodThreshold)
	default:
		fmt.Printf("verdict: avg submit %s exceeds the %s claim — taker delay is real here\n",
			avg, latencyFOKWarnThreshold)
	}
	fmt.Println("----------------------------------------------------------------")
}

func reportBalance(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	if cfg.CircuitBreaker.PolygonRPCURL == "" {
		return
	}

	walletClient, err := wallet.NewClient(cfg.CircuitBreaker.PolygonRPCURL, logger)
	if err != nil {
		logger.Warn("wallet-client-create-failed", zap.Error(err))
		return
	}

	address, err := probeAddress(cfg.Polymarket.PrivateKey)
	if err != nil {
		logger.Warn("derive-address-failed", zap.Error(err))
		return
	}

	balances, err := walletClient.GetBalances(ctx, address)
	if err != nil {
		logger.Warn("fetch-balances-failed", zap.Error(err))
		return
	}

	usdc := new(big.Float).Quo(new(big.Float).SetInt(balances.USDC), big.NewFloat(1_000_000))
	fmt.Printf("final USDC balance: %s\n", usdc.Text('f', 2))
}

func probeAddress(privateKeyHex string) (common.Address, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("derive address: unexpected public key type")
	}
	return crypto.PubkeyToAddress(*publicKeyECDSA), nil
}
