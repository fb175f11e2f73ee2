package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// ErrUnknownMigration reports a recorded migration that this build does not
// ship, which means the database was migrated by a newer binary.
var ErrUnknownMigration = errors.New("unknown migration recorded")

// Run applies every embedded migration that is not yet recorded in
// schema_migrations and returns the filenames it applied, in order. Each
// file runs in its own transaction.
func Run(ctx context.Context, db *sql.DB) ([]string, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("get applied migrations: %w", err)
	}

	files, err := migrationFiles()
	if err != nil {
		return nil, fmt.Errorf("list migration files: %w", err)
	}

	todo, err := pending(files, applied)
	if err != nil {
		return nil, err
	}

	done := make([]string, 0, len(todo))
	for _, filename := range todo {
		if err := apply(ctx, db, filename); err != nil {
			return done, fmt.Errorf("apply migration %s: %w", filename, err)
		}
		done = append(done, filename)
	}
	return done, nil
}

// pending returns the files not yet in applied. Every applied entry must
// still exist in files.
func pending(files []string, applied map[string]bool) ([]string, error) {
	known := make(map[string]bool, len(files))
	var todo []string
	for _, f := range files {
		known[f] = true
		if !applied[f] {
			todo = append(todo, f)
		}
	}
	for f := range applied {
		if !known[f] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMigration, f)
		}
	}
	return todo, nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}
	return applied, rows.Err()
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func apply(ctx context.Context, db *sql.DB, filename string) error {
	content, err := fs.ReadFile(FS, filename)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute sql: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", filename); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
