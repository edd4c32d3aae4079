package main

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/internal/repository/postgres"
)

func migrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(
		migrateSubCmd(configPath, "up", "Apply pending migrations", postgres.MigrateUp),
		migrateSubCmd(configPath, "down", "Roll back the last migration", postgres.MigrateDown),
		migrateSubCmd(configPath, "status", "Show migration status", postgres.MigrateStatus),
	)
	return cmd
}

func migrateSubCmd(configPath *string, use, short string, run func(*sqlx.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return errors.New("migrations require the postgres driver")
			}
			log := newLogger(cfg.Log)

			db, err := postgres.NewDB(context.Background(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := run(db); err != nil {
				return err
			}
			log.Info("migrate " + use + " complete")
			return nil
		},
	}
}
