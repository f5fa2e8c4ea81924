package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/render"
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project as PDF",
	Long: `Render all pages of a project into a PDF document. The document is
written to <export-dir>/<project-name>/Fotoseiten_<date>_<time>.pdf.
Photos that cannot be read leave an empty cell and are listed as warnings.

Examples:
  photo-pages export 3f2a...
  photo-pages export 3f2a... --dir ./out --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("dir", "", "Export directory (defaults to EXPORT_DIR)")
	exportCmd.Flags().Bool("json", false, "Print the export report as JSON")
}

func runExport(cmd *cobra.Command, args []string) error {
	dir := mustGetString(cmd, "dir")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	if dir != "" {
		cfg.Export.Dir = dir
	}
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var bar *progressbar.ProgressBar
	hook := render.WithPageHook(func(page render.ReportPage) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	svc, err := newService(cfg, store, hook)
	if err != nil {
		return err
	}

	detail, err := svc.GetProject(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}
	if !jsonOutput {
		bar = progressbar.NewOptions(len(detail.Pages),
			progressbar.OptionSetDescription("Rendering pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pages"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	path, report, err := svc.Export(ctx, args[0])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"path": path, "report": report})
	}

	fmt.Printf("\nExported %d pages with %d photos to %s\n", report.PageCount, report.PhotoCount, path)
	if len(report.Warnings) > 0 {
		fmt.Printf("\n%d warnings:\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	return nil
}
