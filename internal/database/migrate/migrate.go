// Package migrate applies numbered SQL files to a database and records each
// applied file in schema_migrations. PostgreSQL and SQLite stores share it.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
)

// Placeholder renders the n-th (1-based) bind parameter of a dialect.
type Placeholder func(n int) string

// Dollar renders PostgreSQL parameters ($1, $2, ...).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders SQLite and MySQL parameters.
func Question(int) string { return "?" }

// Runner applies the *.sql files found at the root of files.
type Runner struct {
	db    *sql.DB
	files fs.FS
	param Placeholder
}

// New creates a runner for db. files holds the migration scripts, applied in
// lexical order of their names.
func New(db *sql.DB, files fs.FS, param Placeholder) *Runner {
	return &Runner{db: db, files: files, param: param}
}

// getAppliedMigrations returns a set of already-applied migration versions.
func (r *Runner) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	versions, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// getPendingMigrationFiles returns sorted SQL migration filenames not yet applied.
func (r *Runner) getPendingMigrationFiles(applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(r.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") && !applied[e.Name()] {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run applies all pending migrations, each in its own transaction, and
// returns the names of the files it applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	applied, err := r.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	files, err := r.getPendingMigrationFiles(applied)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, file := range files {
		if err := r.apply(ctx, file); err != nil {
			return done, err
		}
		log.Printf("Applied migration: %s", file)
		done = append(done, file)
	}
	return done, nil
}

func (r *Runner) apply(ctx context.Context, file string) error {
	content, err := fs.ReadFile(r.files, file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for %s: %w", file, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("execute migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ("+r.param(1)+")", file); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", file, err)
	}
	return nil
}

// Applied returns the applied migrations in order.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}
