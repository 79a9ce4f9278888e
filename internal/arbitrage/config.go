package arbitrage

import "github.com/mselser95/predmarket-arb/pkg/decimal"

// Config carries every §9 config key the detectors consume. The app fills
// it field by field from the loaded configuration; viper does not unmarshal
// onto this struct directly.
type Config struct {
	MinEdge      decimal.D
	MinLiquidity decimal.D
	MaxArbSize   decimal.D
	// Bankroll is carried for config-surface parity (§9) but, matching the
	// original engine's calculate_max_position, does not feed the sizing
	// formula: base_max there is max_arb_size, not bankroll.
	Bankroll decimal.D
	FeeRate  decimal.D

	ShortWindowMinEdge decimal.D
	ShortWindowMaxSize decimal.D
	MinMinutesToExpiry float64

	CrossMarketMaxCost   decimal.D
	CrossMarketMinProfit decimal.D
}

// DefaultConfig returns the defaults named across §4.2/§4.3/§4.6/§9.
func DefaultConfig() Config {
	return Config{
		MinEdge:              decimal.NewFromFloat(0.012),
		MinLiquidity:         decimal.NewFromFloat(50),
		MaxArbSize:           decimal.NewFromFloat(500),
		Bankroll:             decimal.NewFromFloat(10000),
		FeeRate:              decimal.NewFromFloat(0.02),
		ShortWindowMinEdge:   decimal.NewFromFloat(0.008),
		ShortWindowMaxSize:   decimal.NewFromFloat(100),
		MinMinutesToExpiry:   2,
		CrossMarketMaxCost:   decimal.NewFromFloat(0.98),
		CrossMarketMinProfit: decimal.NewFromFloat(0.50),
	}
}
