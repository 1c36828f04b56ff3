package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the resolved polling sources",
	Long: `Resolves the configured sources plus any derived from the dispensary
directory, with overrides applied, and prints the result.`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sources, _, err := resolveSources(cfg)
	if err != nil {
		return err
	}

	if sourcesJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding sources: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	cmd.Printf("%-50s %-10s %-10s %s\n", "ID", "PROVIDER", "INTERVAL", "NAME")
	for _, source := range sources {
		cmd.Printf("%-50s %-10s %-10s %s\n",
			source.ID, source.Provider, source.Interval(), source.Name)
	}
	cmd.Printf("\n%d source(s)\n", len(sources))
	return nil
}
