package cmd

import (
	"couples-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Creates the tables and indexes the server needs. Safe to run repeatedly.`,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	log.Info().Msg("Schema applied")
	return nil
}
