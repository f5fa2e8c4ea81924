package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/database/mariadb"
	"github.com/kozaktomas/photo-pages/internal/database/postgres"
	"github.com/kozaktomas/photo-pages/internal/database/sqlite"
	"github.com/kozaktomas/photo-pages/internal/project"
	"github.com/kozaktomas/photo-pages/internal/render"
)

// openStore initializes the project store. PostgreSQL is used when
// DATABASE_URL is set, the local SQLite file otherwise.
func openStore(ctx context.Context, cfg *config.Config) (database.ProjectWriter, func(), error) {
	closer := func() {}
	if cfg.Database.URL != "" {
		pool, err := postgres.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		closer = func() { _ = pool.Close() }
	} else {
		store, err := sqlite.Initialize(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		closer = func() { _ = store.Close() }
	}

	writer, err := database.GetProjectWriter(ctx)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return writer, closer, nil
}

// openAlbumSource connects to the PhotoPrism database when configured.
// The returned closer is never nil.
func openAlbumSource(cfg *config.Config) (func(), error) {
	if cfg.PhotoPrism.DatabaseURL == "" {
		return func() {}, nil
	}
	pool, err := mariadb.Initialize(&cfg.PhotoPrism)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PhotoPrism database: %w", err)
	}
	return func() { _ = pool.Close() }, nil
}

// newService wires the project service with the configured renderer.
func newService(cfg *config.Config, store database.ProjectWriter, opts ...render.Option) (*project.Service, error) {
	defaults, err := cfg.Layout.LayoutConfig()
	if err != nil {
		return nil, err
	}
	opts = append([]render.Option{render.WithJPEGQuality(cfg.Export.JPEGQuality)}, opts...)
	renderer := render.NewRenderer(render.FileLoader{Root: cfg.Photos.Root}, opts...)
	return project.NewService(store, renderer, defaults, cfg.Export.Dir), nil
}

// withService opens the store, builds the service and runs fn.
func withService(fn func(ctx context.Context, svc *project.Service) error, opts ...render.Option) error {
	cfg := config.Load()
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := newService(cfg, store, opts...)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}
