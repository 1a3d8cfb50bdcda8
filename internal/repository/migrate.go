package repository

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "schema_migrations"

// Migrate applies every embedded migration that has not been recorded yet.
// Statements use portable DDL so the same files serve Postgres and SQLite.
func (s *Store) Migrate(ctx context.Context, logger *zap.Logger) error {
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (version VARCHAR(255) PRIMARY KEY, applied_at BIGINT NOT NULL)`, migrationsTable)
	if err := s.Driver.Exec(ctx, createTable, []any{}, nil); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	b := s.builder()
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")

		n, err := count(ctx, s.Driver, b.Select().Count().From(b.Table(migrationsTable)).Where(entsql.EQ("version", version)))
		if err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if n > 0 {
			continue
		}

		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		err = s.WithTx(ctx, func(tx querier) error {
			for _, stmt := range splitStatements(string(body)) {
				if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
					return fmt.Errorf("apply migration %s: %w", version, err)
				}
			}
			_, err := exec(ctx, tx, b.Insert(migrationsTable).Columns("version", "applied_at").Values(version, nowNano()))
			return err
		})
		if err != nil {
			return err
		}
		logger.Info("migration applied", zap.String("version", version))
	}
	return nil
}

func splitStatements(body string) []string {
	parts := strings.Split(body, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
