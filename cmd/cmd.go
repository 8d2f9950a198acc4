package cmd

import (
	"context"
	"fmt"
	"os"

	"couples-backend/internal/config"
	"couples-backend/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "couplesd",
	Short: "Backend for the couples companion app",
	Long: `Serves the couples companion API: account registration, pairing two
accounts with a one-time code, quick messages, partner notifications and a
shared photo slideshow.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(purgeCmd)
}

// loadConfig loads the configuration and sets up the logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// connectDB opens and pings a PostgreSQL pool
func connectDB(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	db, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("dbname", cfg.DBName).
		Msg("Database connection established")
	return db, nil
}

// openStore returns the configured store and a function releasing it
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, func(), error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(db), db.Close, nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
