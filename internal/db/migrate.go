package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/logstats/internal/sql"
)

// MigrationNames lists the embedded migration files in apply order.
func MigrationNames() ([]string, error) {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ApplyMigrations runs all embedded SQL migrations in filename order inside
// one transaction. All DDL uses IF NOT EXISTS so reruns are no-ops.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	names, err := MigrationNames()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, name := range names {
			data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+name)
			if err != nil {
				return fmt.Errorf("read migration %s: %w", name, err)
			}

			log.Debug().Str("migration", name).Msg("applying migration")
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return fmt.Errorf("execute migration %s: %w", name, err)
			}
		}
		log.Info().Int("count", len(names)).Msg("all migrations applied")
		return nil
	})
}
