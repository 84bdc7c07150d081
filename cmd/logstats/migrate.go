package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gyeh/logstats/internal/db"
	"github.com/gyeh/logstats/internal/exitcode"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or " + dsnEnv + " is required")
		exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		exit(exitcode.StoreError)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		exit(exitcode.StoreError)
	}

	log.Info().Msg("all migrations applied successfully")
	return closeLog()
}
