package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "predmarket-arb",
	Short: "Prediction-market arbitrage engine",
	Long: `Prediction-market arbitrage engine that subscribes to emerging markets,
detects single-market, multi-outcome, short-window, and cross-market
arbitrage opportunities, and admits them through a risk gate before
executing in live, simulated, or dry-run mode.

The engine polls the catalog API for new markets, subscribes to their
orderbooks via WebSocket, and scans continuously for price inefficiencies.`,
}

//nolint:gochecknoglobals // Cobra boilerplate
var configPath string

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to the YAML config file")
}
