package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bibbank/leasing/internal/infrastructure/config"
	infraPostgres "github.com/bibbank/leasing/internal/infrastructure/persistence/postgres"
	pgutil "github.com/bibbank/leasing/pkg/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the embedded database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := postgresConfig()
		if err != nil {
			return err
		}
		if err := pgutil.RunEmbeddedMigrations(cfg.Postgres().DSN(), infraPostgres.Migrations, infraPostgres.MigrationsDir); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := postgresConfig()
		if err != nil {
			return err
		}
		if err := pgutil.RollbackEmbeddedMigrations(cfg.Postgres().DSN(), infraPostgres.Migrations, infraPostgres.MigrationsDir); err != nil {
			return err
		}
		logger.Info("migrations rolled back")
		return nil
	},
}

func postgresConfig() (config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	if cfg.Engine.Store != config.StorePostgres {
		return config.Config{}, nil, errors.New("migrations need engine.store=postgres")
	}
	return cfg, logger, nil
}
