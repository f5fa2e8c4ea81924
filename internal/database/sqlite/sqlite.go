// Package sqlite stores projects in a local SQLite file. It is the default
// backend when no PostgreSQL URL is configured.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/database/migrate"
)

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite file at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if _, err := s.migrations().Run(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (s *Store) migrations() *migrate.Runner {
	files, _ := fs.Sub(migrationsFS, "migrations")
	return migrate.New(s.conn, files, migrate.Question)
}

// MigrationsApplied returns the list of applied migrations.
func (s *Store) MigrationsApplied(ctx context.Context) ([]string, error) {
	return s.migrations().Applied(ctx)
}

// Initialize opens the store at path and registers it as the active backend.
func Initialize(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	database.RegisterProjectStore("sqlite", func() database.ProjectWriter { return s })
	return s, nil
}
