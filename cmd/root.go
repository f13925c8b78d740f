package cmd

import (
	"context"
	"fmt"
	"os"

	"fleetd/internal/core/logger"
	"fleetd/internal/database/migration"

	"github.com/spf13/cobra"
)

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbURL := os.Getenv("DATABASE_URL")
		migrationDir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") {
			if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
				migrationDir = dir
			}
		}

		log := logger.NewLogger()
		defer log.Sync()

		err := migration.Migrate(
			dbURL,
			fmt.Sprintf("file://%s", migrationDir),
			log,
		)
		if err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}

		return nil
	},
}

func Execute(ctx context.Context) {
	rootCmd := &cobra.Command{
		Use:   "fleetd",
		Short: "Equipment fleet custody service",
	}
	MigrateCmd.Flags().String("dir", "./migrations", "Directory containing the migration files")
	rootCmd.AddCommand(MigrateCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
