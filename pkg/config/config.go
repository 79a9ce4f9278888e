// Package config loads the engine's configuration from a YAML file with
// ARB_-prefixed environment variable overrides, following the same
// viper-backed pattern used across the market-making pack this engine was
// built alongside.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Every field maps directly onto a
// YAML key via its mapstructure tag, so `Load` never needs a bespoke
// unmarshal step per section.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	HTTPPort string `mapstructure:"http_port"`

	Polymarket PolymarketConfig `mapstructure:"polymarket"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`

	Risk           RiskConfig           `mapstructure:"risk"`
	Arbitrage      ArbitrageConfig      `mapstructure:"arbitrage"`
	Correlation    CorrelationConfig    `mapstructure:"correlation"`
	Scanner        ScannerConfig        `mapstructure:"scanner"`
	MarketMaker    MarketMakerConfig    `mapstructure:"market_maker"`
	VolumeFarmer   VolumeFarmerConfig   `mapstructure:"volume_farmer"`
	Execution      ExecutionConfig      `mapstructure:"execution"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Storage        StorageConfig        `mapstructure:"storage"`
}

// PolymarketConfig holds venue API endpoints and credentials.
type PolymarketConfig struct {
	WSURL      string `mapstructure:"ws_url"`
	GammaURL   string `mapstructure:"gamma_url"`
	ClobURL    string `mapstructure:"clob_url"`
	APIKey     string `mapstructure:"api_key"`
	Secret     string `mapstructure:"secret"`
	Passphrase string `mapstructure:"passphrase"`
	PrivateKey string `mapstructure:"private_key"`
}

// DiscoveryConfig controls market-catalog polling.
type DiscoveryConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MarketLimit       int           `mapstructure:"market_limit"`
	MaxMarketDuration time.Duration `mapstructure:"max_market_duration"` // 0 = unlimited
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// WebSocketConfig sizes the order-book ingest connection pool.
type WebSocketConfig struct {
	PoolSize              int           `mapstructure:"pool_size"`
	DialTimeout           time.Duration `mapstructure:"dial_timeout"`
	PongTimeout           time.Duration `mapstructure:"pong_timeout"`
	PingInterval          time.Duration `mapstructure:"ping_interval"`
	ReconnectInitialDelay time.Duration `mapstructure:"reconnect_initial_delay"`
	ReconnectMaxDelay     time.Duration `mapstructure:"reconnect_max_delay"`
	ReconnectBackoffMult  float64       `mapstructure:"reconnect_backoff_mult"`
	MessageBufferSize     int           `mapstructure:"message_buffer_size"`
}

// RiskConfig mirrors risk.Config's field names (decimal conversion happens
// at wiring time, in internal/app).
type RiskConfig struct {
	MaxConcurrentArbs       int      `mapstructure:"max_concurrent_arbs"`
	DailyLossLimit          float64  `mapstructure:"daily_loss_limit"`
	MaxExposurePerMarket    float64  `mapstructure:"max_exposure_per_market"`
	MaxExposurePerEvent     float64  `mapstructure:"max_exposure_per_event"`
	InventoryDriftThreshold float64  `mapstructure:"inventory_drift_threshold"`
	MinLiquidity            float64  `mapstructure:"min_liquidity"`
	PositionTimeoutSeconds  int64    `mapstructure:"position_timeout_seconds"`
	BlacklistedMarkets      []string `mapstructure:"blacklisted_markets"`
}

// ArbitrageConfig mirrors arbitrage.Config's field names.
type ArbitrageConfig struct {
	MinEdge      float64 `mapstructure:"min_edge"`
	MinLiquidity float64 `mapstructure:"min_liquidity"`
	MaxArbSize   float64 `mapstructure:"max_arb_size"`
	Bankroll     float64 `mapstructure:"bankroll"`
	FeeRate      float64 `mapstructure:"fee_rate"`

	ShortWindowMinEdge       float64 `mapstructure:"short_window_min_edge"`
	ShortWindowMaxSize       float64 `mapstructure:"short_window_max_size"`
	MinMinutesToExpiry       float64 `mapstructure:"min_minutes_to_expiry"`
	ShortWindowWindowMinutes float64 `mapstructure:"short_window_window_minutes"`

	CrossMarketMaxCost   float64 `mapstructure:"cross_market_max_cost"`
	CrossMarketMinProfit float64 `mapstructure:"cross_market_min_profit"`

	DetectionInterval time.Duration `mapstructure:"detection_interval"`
}

// CorrelationConfig tunes how aggressively the catalog graph links markets
// sharing an event.
type CorrelationConfig struct {
	MinEdgeStrength float64 `mapstructure:"min_edge_strength"`
}

// ScannerConfig mirrors scanner.Config's field names.
type ScannerConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Workers     int           `mapstructure:"workers"`
	MinOutcomes int           `mapstructure:"min_outcomes"`
}

// MarketMakerConfig mirrors marketmaker.Config's field names.
type MarketMakerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	SpreadBPS          int64         `mapstructure:"spread_bps"`
	OrderSize          float64       `mapstructure:"order_size"`
	MaxOrdersPerMarket int           `mapstructure:"max_orders_per_market"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
}

// VolumeFarmerConfig mirrors volumefarmer.Config's field names.
type VolumeFarmerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MaxPrice          float64 `mapstructure:"max_price"`
	MinVolumePerTrade float64 `mapstructure:"min_volume_per_trade"`
	DailyBudget       float64 `mapstructure:"daily_budget"`
	InitialBalance    float64 `mapstructure:"initial_balance"`
}

// ExecutionConfig selects and bounds the executor.
type ExecutionConfig struct {
	Mode               string        `mapstructure:"mode"` // "live", "sim", or "dry-run"
	MaxPositionSize    float64       `mapstructure:"max_position_size"`
	SlippageTolerance  float64       `mapstructure:"slippage_tolerance"`
	SubmitTimeout      time.Duration `mapstructure:"submit_timeout"`
	VerifyTimeout      time.Duration `mapstructure:"verify_timeout"`
	SimStartingBalance float64       `mapstructure:"sim_starting_balance"`
}

// CircuitBreakerConfig mirrors circuitbreaker.Config's field names.
type CircuitBreakerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	TradeMultiplier float64       `mapstructure:"trade_multiplier"`
	MinAbsolute     float64       `mapstructure:"min_absolute"`
	HysteresisRatio float64       `mapstructure:"hysteresis_ratio"`
	PolygonRPCURL   string        `mapstructure:"polygon_rpc_url"`
}

// StorageConfig selects and configures opportunity persistence.
type StorageConfig struct {
	Mode     string `mapstructure:"mode"` // "postgres" or "console"
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Load reads configuration from a YAML file at path, if present, with
// ARB_-prefixed environment variables overriding any key. path may be
// empty, in which case the file read is skipped and defaults plus env
// vars apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", "8080")

	v.SetDefault("polymarket.ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("polymarket.gamma_url", "https://gamma-api.polymarket.com")
	v.SetDefault("polymarket.clob_url", "https://clob.polymarket.com")

	v.SetDefault("discovery.poll_interval", 30*time.Second)
	v.SetDefault("discovery.market_limit", 1000)
	v.SetDefault("discovery.max_market_duration", 0)
	v.SetDefault("discovery.cleanup_interval", 5*time.Minute)

	v.SetDefault("websocket.pool_size", 20)
	v.SetDefault("websocket.dial_timeout", 10*time.Second)
	v.SetDefault("websocket.pong_timeout", 15*time.Second)
	v.SetDefault("websocket.ping_interval", 10*time.Second)
	v.SetDefault("websocket.reconnect_initial_delay", time.Second)
	v.SetDefault("websocket.reconnect_max_delay", 30*time.Second)
	v.SetDefault("websocket.reconnect_backoff_mult", 2.0)
	v.SetDefault("websocket.message_buffer_size", 10000)

	v.SetDefault("risk.max_concurrent_arbs", 10)
	v.SetDefault("risk.daily_loss_limit", 500.0)
	v.SetDefault("risk.max_exposure_per_market", 2000.0)
	v.SetDefault("risk.max_exposure_per_event", 5000.0)
	v.SetDefault("risk.inventory_drift_threshold", 1000.0)
	v.SetDefault("risk.min_liquidity", 50.0)
	v.SetDefault("risk.position_timeout_seconds", 300)

	v.SetDefault("arbitrage.min_edge", 0.012)
	v.SetDefault("arbitrage.min_liquidity", 50.0)
	v.SetDefault("arbitrage.max_arb_size", 500.0)
	v.SetDefault("arbitrage.bankroll", 10000.0)
	v.SetDefault("arbitrage.fee_rate", 0.02)
	v.SetDefault("arbitrage.short_window_min_edge", 0.008)
	v.SetDefault("arbitrage.short_window_max_size", 100.0)
	v.SetDefault("arbitrage.min_minutes_to_expiry", 2.0)
	v.SetDefault("arbitrage.short_window_window_minutes", 30.0)
	v.SetDefault("arbitrage.cross_market_max_cost", 0.98)
	v.SetDefault("arbitrage.cross_market_min_profit", 0.50)
	v.SetDefault("arbitrage.detection_interval", 100*time.Millisecond)

	v.SetDefault("correlation.min_edge_strength", 0.5)

	v.SetDefault("scanner.interval", 5*time.Second)
	v.SetDefault("scanner.workers", 4)
	v.SetDefault("scanner.min_outcomes", 3)

	v.SetDefault("market_maker.enabled", false)
	v.SetDefault("market_maker.spread_bps", 200)
	v.SetDefault("market_maker.order_size", 50.0)
	v.SetDefault("market_maker.max_orders_per_market", 4)
	v.SetDefault("market_maker.refresh_interval", 30*time.Second)

	v.SetDefault("volume_farmer.enabled", false)
	v.SetDefault("volume_farmer.max_price", 0.02)
	v.SetDefault("volume_farmer.min_volume_per_trade", 10.0)
	v.SetDefault("volume_farmer.daily_budget", 100.0)
	v.SetDefault("volume_farmer.initial_balance", 1000.0)

	v.SetDefault("execution.mode", "sim")
	v.SetDefault("execution.max_position_size", 1000.0)
	v.SetDefault("execution.slippage_tolerance", 0.01)
	v.SetDefault("execution.submit_timeout", 8*time.Second)
	v.SetDefault("execution.verify_timeout", 5*time.Second)
	v.SetDefault("execution.sim_starting_balance", 10000.0)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.check_interval", 300*time.Second)
	v.SetDefault("circuit_breaker.trade_multiplier", 3.0)
	v.SetDefault("circuit_breaker.min_absolute", 5.0)
	v.SetDefault("circuit_breaker.hysteresis_ratio", 1.5)
	v.SetDefault("circuit_breaker.polygon_rpc_url", "https://polygon-rpc.com")

	v.SetDefault("storage.mode", "console")
	v.SetDefault("storage.host", "localhost")
	v.SetDefault("storage.port", "5432")
	v.SetDefault("storage.user", "arb")
	v.SetDefault("storage.password", "arb")
	v.SetDefault("storage.database", "predmarket_arb")
	v.SetDefault("storage.ssl_mode", "disable")
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("http_port cannot be empty")
	}
	if c.Polymarket.WSURL == "" {
		return fmt.Errorf("polymarket.ws_url cannot be empty")
	}
	if c.Polymarket.GammaURL == "" {
		return fmt.Errorf("polymarket.gamma_url cannot be empty")
	}

	if c.Arbitrage.MinEdge <= 0 {
		return fmt.Errorf("arbitrage.min_edge must be positive, got %f", c.Arbitrage.MinEdge)
	}
	if c.Arbitrage.MaxArbSize <= 0 {
		return fmt.Errorf("arbitrage.max_arb_size must be positive, got %f", c.Arbitrage.MaxArbSize)
	}

	switch c.Execution.Mode {
	case "live", "sim", "dry-run":
	default:
		return fmt.Errorf("execution.mode must be 'live', 'sim', or 'dry-run', got %q", c.Execution.Mode)
	}

	if c.Discovery.MaxMarketDuration < 0 {
		return fmt.Errorf("discovery.max_market_duration must be non-negative (0 = unlimited), got %s", c.Discovery.MaxMarketDuration)
	}
	if c.Discovery.MarketLimit < 0 {
		return fmt.Errorf("discovery.market_limit must be non-negative (0 = unlimited), got %d", c.Discovery.MarketLimit)
	}

	if c.WebSocket.PoolSize < 1 || c.WebSocket.PoolSize > 20 {
		return fmt.Errorf("websocket.pool_size must be between 1 and 20, got %d", c.WebSocket.PoolSize)
	}

	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be at least 1, got %d", c.Scanner.Workers)
	}

	if c.Storage.Mode != "postgres" && c.Storage.Mode != "console" {
		return fmt.Errorf("storage.mode must be 'postgres' or 'console', got %q", c.Storage.Mode)
	}

	return nil
}
