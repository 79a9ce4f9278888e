package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
	"github.com/mselser95/predmarket-arb/pkg/decimal"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints an arbitrage opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY DETECTED: %s\n", opp.Kind)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Market:   %s\n", opp.MarketID)
	fmt.Printf("Event:    %s\n", opp.EventID)
	fmt.Printf("Time:     %s\n", time.UnixMilli(opp.TimestampMs).Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("EDGES (%d)\n", len(opp.Edges))

	for _, edge := range opp.Edges {
		fmt.Printf("  %-15s %s @ %s size\n", edge.Outcome+":", edge.Price, edge.Size)
	}

	fmt.Printf("  ───────────────────────────────\n")
	fmt.Printf("  Total Edge:      %s\n", opp.TotalEdge)
	fmt.Printf("  Position Size:   %s\n", opp.PositionSize)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("PROFIT ANALYSIS\n")
	fmt.Printf("  Fee Cost:        %s\n", opp.FeeCost)
	fmt.Printf("  Net Profit:      %s\n", opp.NetProfit)
	if decimal.IsPositive(opp.NetProfit) {
		fmt.Printf("  ✓ PROFITABLE after fees!\n")
	} else {
		fmt.Printf("  ✗ NOT profitable after fees\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
