package pg

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// Migrate applies the embedded schema migrations in lexical order,
// skipping any already recorded in the bookkeeping table. Safe to run on
// every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		create table if not exists `+migrationsTable+` (
			name text primary key,
			applied_at timestamptz not null default now()
		)`); err != nil {
		return fmt.Errorf("pg: ensure migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("pg: list migrations: %w", err)
	}
	for _, name := range names {
		base := path.Base(name)
		if applied[base] {
			continue
		}
		stmts, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("pg: read migration %s: %w", base, err)
		}
		if _, err := db.ExecContext(ctx, string(stmts)); err != nil {
			return fmt.Errorf("pg: apply migration %s: %w", base, err)
		}
		if _, err := db.ExecContext(ctx,
			`insert into `+migrationsTable+` (name) values ($1)`, base); err != nil {
			return fmt.Errorf("pg: record migration %s: %w", base, err)
		}
	}
	return nil
}

// AppliedMigrations returns the recorded migration names in application
// order.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`select name from `+migrationsTable+` order by applied_at, name`)
	if err != nil {
		return nil, fmt.Errorf("pg: migration status: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("pg: migration status: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	names, err := AppliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}
	return applied, nil
}
