package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/layout"
	"github.com/kozaktomas/photo-pages/internal/project"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Add, remove and reorder photos",
	Long:  `Commands for managing the photos of a project.`,
}

var photosAddCmd = &cobra.Command{
	Use:   "add <project-id> <file>...",
	Short: "Add photos to a project",
	Long: `Add image files to a project and recompose its pages. Relative paths
are resolved against PHOTO_ROOT. The capture date is taken from --taken
or, when not given, from the file modification time.

Examples:
  photo-pages photos add 3f2a... 2024/05/*.jpg
  photo-pages photos add 3f2a... beach.jpg --caption "Am Strand" --taken 2024-05-03`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPhotosAdd,
}

var photosRemoveCmd = &cobra.Command{
	Use:   "remove <project-id> <photo-id>",
	Short: "Remove a photo and recompose the pages",
	Args:  cobra.ExactArgs(2),
	RunE:  runPhotosRemove,
}

var photosReorderCmd = &cobra.Command{
	Use:   "reorder <page-id> <photo-id>...",
	Short: "Set the order of the photos on a page",
	Long: `Set the order of the photos on one page. All photos of the page must
be listed exactly once.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPhotosReorder,
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.AddCommand(photosAddCmd, photosRemoveCmd, photosReorderCmd)

	photosAddCmd.Flags().String("caption", "", "Caption for all added photos")
	photosAddCmd.Flags().String("taken", "", "Capture date (YYYY-MM-DD) for all added photos")
}

// takenAt returns the capture time of a photo in epoch milliseconds.
func takenAt(root, uri, override string) (int64, error) {
	if override != "" {
		t, err := time.ParseInLocation(time.DateOnly, override, time.Local)
		if err != nil {
			return 0, fmt.Errorf("invalid --taken date %q: %w", override, err)
		}
		return t.UnixMilli(), nil
	}
	path := uri
	if root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("photo %s: %w", uri, err)
	}
	return info.ModTime().UnixMilli(), nil
}

func runPhotosAdd(cmd *cobra.Command, args []string) error {
	caption := mustGetString(cmd, "caption")
	taken := mustGetString(cmd, "taken")
	root := config.Load().Photos.Root

	photos := make([]layout.Photo, 0, len(args)-1)
	for _, uri := range args[1:] {
		ms, err := takenAt(root, uri, taken)
		if err != nil {
			return err
		}
		photos = append(photos, layout.Photo{URI: uri, Caption: caption, DateTaken: ms})
	}

	return withService(func(ctx context.Context, svc *project.Service) error {
		pages, err := svc.AddPhotos(ctx, args[0], photos)
		if err != nil {
			return fmt.Errorf("failed to add photos: %w", err)
		}
		fmt.Printf("Added %d photos, project now has %d pages\n", len(photos), len(pages))
		return nil
	})
}

func runPhotosRemove(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		pages, err := svc.RemovePhoto(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to remove photo: %w", err)
		}
		fmt.Printf("Removed photo %s, project now has %d pages\n", args[1], len(pages))
		return nil
	})
}

func runPhotosReorder(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		page, err := svc.ReorderPhotos(ctx, args[0], args[1:])
		if err != nil {
			return fmt.Errorf("failed to reorder photos: %w", err)
		}
		for _, ph := range page.Photos {
			fmt.Printf("%d. %s\n", ph.Position+1, ph.URI)
		}
		return nil
	})
}
