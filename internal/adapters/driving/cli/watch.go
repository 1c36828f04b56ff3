package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/leafstream/internal/adapters/driving/tui"
)

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the live price ticker",
	Long: `Connects to a running leafstream instance and renders incoming price
updates and heartbeats as a terminal ticker.

Controls:
  q / Esc - Quit`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "http://localhost:8080", "base URL of the running instance")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal")
	}

	return tui.Run(cmd.Context(), watchAddr)
}
