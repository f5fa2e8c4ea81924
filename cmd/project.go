package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/layout"
	"github.com/kozaktomas/photo-pages/internal/project"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project operations",
	Long:  `Commands for creating, inspecting and configuring photo projects.`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Long: `Create an empty project. Settings not given as flags are taken from
the configured layout defaults.

Examples:
  photo-pages project create "Urlaub 2024"
  photo-pages project create "Hochzeit" --images-per-page 2 --frame-style thick --frame-color "#8B7355"`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show the pages and photos of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project with all its pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

var projectSettingsCmd = &cobra.Command{
	Use:   "settings <project-id>",
	Short: "Change project settings",
	Long: `Change the settings of a project. Only the given flags are changed.
Changing the number of images per page or the sort order recomposes all pages.

Examples:
  photo-pages project settings 3f2a... --images-per-page 6
  photo-pages project settings 3f2a... --frame=false`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectSettings,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectShowCmd, projectDeleteCmd, projectSettingsCmd)

	for _, c := range []*cobra.Command{projectCreateCmd, projectSettingsCmd} {
		c.Flags().Int("images-per-page", 0, "Number of photos per page (1-6)")
		c.Flags().Bool("descending", false, "Sort photos newest first")
		c.Flags().Bool("frame", true, "Draw a frame around each photo")
		c.Flags().String("frame-style", "", "Frame style: thin, medium or thick")
		c.Flags().String("frame-color", "", "Frame color as #RRGGBB")
	}
	projectSettingsCmd.Flags().String("name", "", "New project name")

	projectListCmd.Flags().Bool("json", false, "Output as JSON")
	projectShowCmd.Flags().Bool("json", false, "Output as JSON")
}

// settingsFromFlags collects the flags the user actually set.
func settingsFromFlags(cmd *cobra.Command) project.SettingsUpdate {
	u := project.SettingsUpdate{
		Name:          changed(cmd, "name", mustGetString),
		ImagesPerPage: changed(cmd, "images-per-page", mustGetInt),
		FrameEnabled:  changed(cmd, "frame", mustGetBool),
		FrameStyle:    changed(cmd, "frame-style", mustGetString),
		FrameColorHex: changed(cmd, "frame-color", mustGetString),
	}
	if desc := changed(cmd, "descending", mustGetBool); desc != nil {
		asc := !*desc
		u.SortAscending = &asc
	}
	return u
}

// applySettings overlays a settings update on cfg.
func applySettings(cfg layout.Config, u project.SettingsUpdate) (layout.Config, error) {
	if u.ImagesPerPage != nil {
		cfg.ImagesPerPage = *u.ImagesPerPage
	}
	if u.SortAscending != nil {
		cfg.SortAscending = *u.SortAscending
	}
	if u.FrameEnabled != nil {
		cfg.FrameEnabled = *u.FrameEnabled
	}
	if u.FrameStyle != nil {
		style, err := layout.ParseFrameStyle(*u.FrameStyle)
		if err != nil {
			return cfg, err
		}
		cfg.FrameStyle = style
	}
	if u.FrameColorHex != nil {
		cfg.FrameColorHex = *u.FrameColorHex
	}
	return cfg, nil
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		cfg, err := applySettings(svc.Defaults(), settingsFromFlags(cmd))
		if err != nil {
			return err
		}
		p, err := svc.CreateProject(ctx, args[0], &cfg)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		fmt.Printf("Created project %q (%s)\n", p.Name, p.ID)
		return nil
	})
}

func runProjectList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	return withService(func(ctx context.Context, svc *project.Service) error {
		projects, err := svc.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(projects)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPAGES\tPHOTOS\tUPDATED")
		fmt.Fprintln(w, "--\t----\t-----\t------\t-------")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", p.ID, p.Name, p.PageCount, p.PhotoCount, p.UpdatedAt.Local().Format(time.DateTime))
		}
		w.Flush()

		fmt.Printf("\nTotal: %d projects\n", len(projects))
		return nil
	})
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	return withService(func(ctx context.Context, svc *project.Service) error {
		detail, err := svc.GetProject(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get project: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		}

		printDetail(detail)
		return nil
	})
}

func printDetail(d *project.Detail) {
	cfg := d.Config
	order := "oldest first"
	if !cfg.SortAscending {
		order = "newest first"
	}
	frame := "none"
	if cfg.FrameEnabled {
		frame = fmt.Sprintf("%s %s", cfg.FrameStyle.Label(), cfg.FrameColorHex)
	}

	fmt.Printf("Project:  %s (%s)\n", d.Project.Name, d.Project.ID)
	fmt.Printf("Layout:   %d per page, %s\n", cfg.ImagesPerPage, order)
	fmt.Printf("Frame:    %s\n", frame)
	fmt.Println()

	if len(d.Pages) == 0 {
		fmt.Println("No pages yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAGE\tPOS\tPHOTO ID\tTAKEN\tURI\tCAPTION")
	fmt.Fprintln(w, "----\t---\t--------\t-----\t---\t-------")
	for _, page := range layout.Sorted(d.Pages) {
		fmt.Fprintf(w, "%d\t\t%s\t\t\t%s\n", page.PageIndex+1, page.ID, page.Title)
		for _, ph := range page.Photos {
			taken := "-"
			if ph.DateTaken > 0 {
				taken = time.UnixMilli(ph.DateTaken).Local().Format(time.DateOnly)
			}
			fmt.Fprintf(w, "\t%d\t%s\t%s\t%s\t%s\n", ph.Position+1, ph.ID, taken, ph.URI, ph.Caption)
		}
	}
	w.Flush()
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *project.Service) error {
		if err := svc.DeleteProject(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	})
}

func runProjectSettings(cmd *cobra.Command, args []string) error {
	u := settingsFromFlags(cmd)
	return withService(func(ctx context.Context, svc *project.Service) error {
		detail, err := svc.UpdateSettings(ctx, args[0], u)
		if err != nil {
			return fmt.Errorf("failed to update settings: %w", err)
		}
		printDetail(detail)
		return nil
	})
}
