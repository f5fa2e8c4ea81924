package postgres

import (
	"context"
	"embed"
	"io/fs"

	"github.com/kozaktomas/photo-pages/internal/database/migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (p *Pool) migrations() *migrate.Runner {
	// the pattern above guarantees the directory exists
	files, _ := fs.Sub(migrationsFS, "migrations")
	return migrate.New(p.db, files, migrate.Dollar)
}

// Migrate applies all pending schema migrations.
func (p *Pool) Migrate(ctx context.Context) error {
	_, err := p.migrations().Run(ctx)
	return err
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return p.migrations().Applied(ctx)
}
