// Package cli wires the pipeline together behind the leafstream
// command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/leafstream/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "leafstream",
	Short: "Continuous dispensary price and review ingestion",
	Long: `Leafstream continuously polls dispensary sources for catalog, price
and review data, normalises and deduplicates the observations, appends
them to durable event logs, and fans accepted events out to live
subscribers over an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.leafstream/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
