package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/project"
)

var titleCmd = &cobra.Command{
	Use:   "title <page-id> [title]",
	Short: "Set the title of a page",
	Long:  `Set the title printed above a page. Omit the title to remove it.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTitle,
}

var captionCmd = &cobra.Command{
	Use:   "caption <photo-id> [caption]",
	Short: "Set the caption of a photo",
	Long:  `Set the caption printed below a photo. Omit the caption to remove it.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCaption,
}

func init() {
	rootCmd.AddCommand(titleCmd, captionCmd)
}

// optionalArg returns args[i] or an empty string.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func runTitle(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		if err := svc.UpdatePageTitle(ctx, args[0], optionalArg(args, 1)); err != nil {
			return fmt.Errorf("failed to update title: %w", err)
		}
		fmt.Println("Title updated")
		return nil
	})
}

func runCaption(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		if err := svc.UpdatePhotoCaption(ctx, args[0], optionalArg(args, 1)); err != nil {
			return fmt.Errorf("failed to update caption: %w", err)
		}
		fmt.Println("Caption updated")
		return nil
	})
}
