package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/database"
)

var importCmd = &cobra.Command{
	Use:   "import-photoprism <project-id> <album-uid>",
	Short: "Add the photos of a PhotoPrism album to a project",
	Long: `Read an album directly from the PhotoPrism database and add its photos
to a project. Photo descriptions become captions and file names are
resolved against the PhotoPrism originals directory.

Requires PHOTOPRISM_DATABASE_URL.

Examples:
  photo-pages import-photoprism 3f2a... aq8xyz789ghi
  photo-pages import-photoprism 3f2a... aq8xyz789ghi --originals /photoprism/originals`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("originals", "", "PhotoPrism originals directory (defaults to PHOTOPRISM_ORIGINALS_PATH)")
}

func runImport(cmd *cobra.Command, args []string) error {
	originals := mustGetString(cmd, "originals")

	cfg := config.Load()
	if cfg.PhotoPrism.DatabaseURL == "" {
		return errors.New("PHOTOPRISM_DATABASE_URL environment variable is required")
	}
	if originals == "" {
		originals = cfg.PhotoPrism.OriginalsPath
	}
	ctx := context.Background()

	closeSource, err := openAlbumSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()
	source, err := database.GetAlbumSource(ctx)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc, err := newService(cfg, store)
	if err != nil {
		return err
	}
	pages, err := svc.ImportAlbum(ctx, args[0], source, args[1], originals)
	if err != nil {
		return fmt.Errorf("failed to import album: %w", err)
	}
	fmt.Printf("Imported album %s, project now has %d pages\n", args[1], len(pages))
	return nil
}
