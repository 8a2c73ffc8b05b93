package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tallyhq/tally/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  tally migrate      # Run all pending migrations
  tally migrate 1    # Migrate to version 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return database.Migrate(cfg.Database)
	}

	version, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return database.MigrateTo(cfg.Database, uint(version))
}
