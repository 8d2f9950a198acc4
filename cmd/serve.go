package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couples-backend/internal/config"
	"couples-backend/internal/handlers"
	"couples-backend/internal/services"
	"couples-backend/internal/storage"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	images, local, err := openImageStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	relay := services.NewRelay(services.LogDeliverer{}, cfg.Notify.QueueSize)
	defer relay.Close()

	// Initialize services
	tokens := services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	pairingService := services.NewPairingService(store, cfg.Pairing.CodeTTL())
	deps := handlers.RouterDeps{
		Tokens:              tokens,
		UserService:         services.NewUserService(store, tokens, 0),
		PairingService:      pairingService,
		CoupleService:       services.NewCoupleService(store),
		QuickMessageService: services.NewQuickMessageService(store, cfg.QuickMessages.MaxPerCouple),
		SlideshowService:    services.NewSlideshowService(store, images, cfg.Slideshow.MaxImages),
		NotificationService: services.NewNotificationService(store, relay),
		MaxUploadBytes:      cfg.Slideshow.MaxUploadBytes,
		MetricsEnabled:      cfg.Metrics.Enabled,
	}
	if local != nil {
		deps.UploadDir = local.Dir()
		deps.UploadPrefix = local.Prefix()
	}

	if cfg.Pairing.PurgeInterval > 0 {
		go pairingService.RunPurger(ctx, cfg.Pairing.PurgeInterval)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handlers.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("database", cfg.Database.Driver).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal for graceful shutdown
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

// openImageStore returns the configured image store. For local storage it
// also returns the LocalStore so the router can serve its files.
func openImageStore(ctx context.Context, cfg config.StorageConfig) (storage.ImageStore, *storage.LocalStore, error) {
	if cfg.Driver == "s3" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Endpoint:  cfg.S3.Endpoint,
			PublicURL: cfg.S3.PublicURL,
			KeyPrefix: cfg.S3.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3Store, nil, nil
	}

	local, err := storage.NewLocalStore(cfg.UploadDir, cfg.PublicPrefix)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}
