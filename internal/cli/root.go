package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tallyhq/tally/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Time tracking and invoicing for freelancers",
	Long: `tally tracks working time per client project and turns it into reports and invoices.

Run the HTTP API with "tally serve", apply database migrations with "tally migrate"
and print a terminal chart of the last days with "tally report weekly".`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config/application.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
}

func loadConfig() (config.Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Application{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
