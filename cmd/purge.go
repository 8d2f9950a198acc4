package cmd

import (
	"couples-backend/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge-codes",
	Short: "Delete used and expired pairing codes",
	RunE:  runPurge,
}

func runPurge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := services.NewPairingService(store, cfg.Pairing.CodeTTL()).PurgeStaleCodes(ctx)
	if err != nil {
		return err
	}

	log.Info().Int64("purged", n).Msg("Purged stale pairing codes")
	return nil
}
