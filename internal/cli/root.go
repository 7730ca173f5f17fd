// Package cli implements the factiva command line interface on top of the SDK
// packages.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "factiva",
		Short: "Factiva Analytics command line client",
		Long: `Interact with the Dow Jones Factiva Analytics APIs: account limits,
snapshot explains, time series, extractions, streaming instances, article
retrieval and taxonomies.

Credentials are read from the FACTIVA_* environment variables or a local
.env file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env file is fine; the environment may already be set.
			_ = godotenv.Load()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/factiva/config.yaml)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output as JSON")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(timeSeriesCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(articleCmd)
	rootCmd.AddCommand(taxonomyCmd)
}

func setup(cmd *cobra.Command) (*Settings, error) {
	settings, err := LoadSettings(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return settings, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
