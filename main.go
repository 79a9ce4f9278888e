// Command predmarket-arb is the entry point for the arbitrage engine, its
// short-window simulator, and its latency probe — see cmd/ for the three
// subcommands.
package main

import "github.com/mselser95/predmarket-arb/cmd"

func main() {
	cmd.Execute()
}
