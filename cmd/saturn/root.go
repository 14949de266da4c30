package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "saturn",
	Short: "Mercator Saturn - partition-based TTL for record stores",
	Long: `Mercator Saturn is a column-level TTL layer for record stores. Records
keep a permanent core row; their expiring attributes live in time-range
partitions selected by expiry timestamp.

Expiry is enforced by retiring whole partitions, providing:
  - Deterministic payload routing into half-open partition ranges
  - Scheduled provisioning of partitions ahead of the clock
  - Partition retirement with optional archive-then-drop
  - A composite read view that never shows expired attributes
  - Prometheus metrics for maintenance runs

For more information, visit: https://github.com/mercator-hq/saturn`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Keep cobra's generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
