// Package project manages photo projects: it composes their pages, keeps them
// in the configured store and exports them as PDF documents.
package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
	"github.com/kozaktomas/photo-pages/internal/render"
)

var (
	// ErrInvalidInput reports a malformed request such as an empty photo list.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNameRequired is returned for a blank project name.
	ErrNameRequired = fmt.Errorf("%w: project name is required", ErrInvalidInput)
)

// Service applies project operations against a store. All mutations of one
// project are serialized.
type Service struct {
	store     database.ProjectWriter
	renderer  *render.Renderer
	defaults  layout.Config
	exportDir string
	now       func() time.Time
	locks     keyedMutex
}

// NewService creates a service. defaults seeds new projects and carries the
// title policy used for every recomposition.
func NewService(store database.ProjectWriter, renderer *render.Renderer, defaults layout.Config, exportDir string) *Service {
	return &Service{
		store:     store,
		renderer:  renderer,
		defaults:  defaults,
		exportDir: exportDir,
		now:       time.Now,
	}
}

// Defaults returns the layout settings new projects start with.
func (s *Service) Defaults() layout.Config {
	return s.defaults
}

// Detail is a project together with its resolved settings and pages.
type Detail struct {
	Project database.Project
	Config  layout.Config
	Pages   []layout.Page
}

func (s *Service) config(p *database.Project) layout.Config {
	return p.LayoutConfig(s.defaults.TitlePolicy)
}

// --- Projects ---

// CreateProject creates an empty project. A nil cfg uses the defaults.
func (s *Service) CreateProject(ctx context.Context, name string, cfg *layout.Config) (*database.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	settings := s.defaults
	if cfg != nil {
		settings = *cfg
		settings.TitlePolicy = s.defaults.TitlePolicy
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	p := &database.Project{Name: name}
	p.SetLayout(settings)
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Service) ListProjects(ctx context.Context) ([]database.ProjectWithCounts, error) {
	return s.store.ListProjects(ctx)
}

// GetProject returns the project with its pages.
func (s *Service) GetProject(ctx context.Context, id string) (*Detail, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, err := s.store.GetPages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Project: *p, Config: s.config(p), Pages: pages}, nil
}

// DeleteProject removes the project with all its pages.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.store.DeleteProject(ctx, id)
}

// --- Photos ---

// AddPhotos appends photos to the project and recomposes all pages. Existing
// photos keep their IDs and captions.
func (s *Service) AddPhotos(ctx context.Context, projectID string, photos []layout.Photo) ([]layout.Page, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("%w: no photos given", ErrInvalidInput)
	}
	added := make([]layout.Photo, len(photos))
	for i, ph := range photos {
		if strings.TrimSpace(ph.URI) == "" {
			return nil, fmt.Errorf("%w: photo %d has no URI", ErrInvalidInput, i)
		}
		added[i] = layout.Photo{URI: ph.URI, Caption: ph.Caption, DateTaken: ph.DateTaken}
	}

	unlock := s.locks.Lock(projectID)
	defer unlock()

	p, pages, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	all := append(layout.Flatten(pages), added...)
	next, err := layout.Compose(all, pages, s.config(p).Options())
	if err != nil {
		return nil, err
	}
	return s.store.ReplacePages(ctx, projectID, next)
}

// RemovePhoto drops a photo and recomposes the remaining ones.
func (s *Service) RemovePhoto(ctx context.Context, projectID, photoID string) ([]layout.Page, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	p, pages, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	next, err := layout.Remove(pages, photoID, s.config(p).Options())
	if err != nil {
		return nil, err
	}
	return s.store.ReplacePages(ctx, projectID, next)
}

// ReorderPhotos sets the order of the photos on one page. photoIDs must list
// exactly the photos of that page.
func (s *Service) ReorderPhotos(ctx context.Context, pageID string, photoIDs []string) (*layout.Page, error) {
	projectID, err := s.store.PageProject(ctx, pageID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(projectID)
	defer unlock()

	pages, err := s.store.GetPages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		if page.ID != pageID {
			continue
		}
		reordered, err := layout.Reorder(page, photoIDs)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdatePhotoPositions(ctx, pageID, photoIDs); err != nil {
			return nil, err
		}
		return &reordered, nil
	}
	// the page moved to another project or vanished between the two reads
	return nil, fmt.Errorf("page %s: %w", pageID, database.ErrNotFound)
}

// --- Text ---

// UpdatePageTitle sets the title of a page. A blank title suppresses the header.
func (s *Service) UpdatePageTitle(ctx context.Context, pageID, title string) error {
	projectID, err := s.store.PageProject(ctx, pageID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(projectID)
	defer unlock()
	return s.store.UpdatePageTitle(ctx, pageID, title)
}

// UpdatePhotoCaption sets the caption of a photo. A blank caption leaves the
// photo the full cell height.
func (s *Service) UpdatePhotoCaption(ctx context.Context, photoID, caption string) error {
	projectID, _, err := s.store.PhotoProject(ctx, photoID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(projectID)
	defer unlock()
	return s.store.UpdatePhotoCaption(ctx, photoID, caption)
}

// --- Settings ---

// SettingsUpdate lists the settings to change; nil fields stay as they are.
type SettingsUpdate struct {
	Name          *string
	ImagesPerPage *int
	SortAscending *bool
	FrameEnabled  *bool
	FrameStyle    *string
	FrameColorHex *string
}

// UpdateSettings stores new settings. Pages are recomposed when the number of
// images per page or the sort direction changes.
func (s *Service) UpdateSettings(ctx context.Context, projectID string, u SettingsUpdate) (*Detail, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()

	p, pages, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	before := s.config(p)
	cfg := before

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		p.Name = name
	}
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
			return nil, err
		}
		cfg.FrameStyle = style
	}
	if u.FrameColorHex != nil {
		cfg.FrameColorHex = strings.TrimSpace(*u.FrameColorHex)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reflow := cfg.ImagesPerPage != before.ImagesPerPage || cfg.SortAscending != before.SortAscending
	var next []layout.Page
	if reflow {
		if next, err = layout.Reflow(pages, cfg.Options()); err != nil {
			return nil, err
		}
	}

	p.SetLayout(cfg)
	if reflow {
		// settings and pages change together or not at all
		if pages, err = s.store.ReplaceProjectLayout(ctx, p, next); err != nil {
			return nil, err
		}
	} else if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}
	return &Detail{Project: *p, Config: cfg, Pages: pages}, nil
}

// --- Import ---

// ImportAlbum adds every photo of a catalog album to the project. Relative
// catalog paths are resolved against originalsDir; descriptions become captions.
func (s *Service) ImportAlbum(ctx context.Context, projectID string, source database.AlbumSource, albumUID, originalsDir string) ([]layout.Page, error) {
	album, err := source.AlbumPhotos(ctx, albumUID)
	if err != nil {
		return nil, err
	}
	if len(album) == 0 {
		return nil, fmt.Errorf("%w: album %s has no photos", ErrInvalidInput, albumUID)
	}
	photos := make([]layout.Photo, len(album))
	for i, ap := range album {
		uri := ap.Path
		if originalsDir != "" && !filepath.IsAbs(uri) {
			uri = filepath.Join(originalsDir, filepath.FromSlash(uri))
		}
		photos[i] = layout.Photo{URI: uri, Caption: strings.TrimSpace(ap.Description), DateTaken: ap.TakenAt}
	}
	return s.AddPhotos(ctx, projectID, photos)
}

// --- Export ---

// ExportPath returns where an export of the project started at t is written.
func (s *Service) ExportPath(p *database.Project, t time.Time) string {
	return filepath.Join(s.exportDir, Slug(p.Name), render.ExportFileName(t))
}

// Export renders the project into the export directory and returns the path
// of the written document.
func (s *Service) Export(ctx context.Context, projectID string) (string, *render.Report, error) {
	p, pages, err := s.snapshot(ctx, projectID)
	if err != nil {
		return "", nil, err
	}
	path := s.ExportPath(p, s.now())
	report, err := s.renderer.Export(ctx, pages, s.config(p), path)
	if err != nil {
		return "", nil, err
	}
	logReport(p, report)
	return path, report, nil
}

// WriteExport renders the project as a PDF into w.
func (s *Service) WriteExport(ctx context.Context, projectID string, w io.Writer) (*render.Report, error) {
	p, pages, err := s.snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	report, err := s.renderer.Render(ctx, pages, s.config(p), w)
	if err != nil {
		return nil, err
	}
	report.FileName = render.ExportFileName(s.now())
	logReport(p, report)
	return report, nil
}

// snapshot reads project and pages under the project lock so an export never
// sees a half-applied edit. Rendering itself runs without the lock.
func (s *Service) snapshot(ctx context.Context, projectID string) (*database.Project, []layout.Page, error) {
	unlock := s.locks.Lock(projectID)
	defer unlock()
	p, pages, err := s.load(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, render.ErrNoPages
	}
	return p, pages, nil
}

func (s *Service) load(ctx context.Context, projectID string) (*database.Project, []layout.Page, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	pages, err := s.store.GetPages(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return p, pages, nil
}

func logReport(p *database.Project, report *render.Report) {
	if len(report.Warnings) > 0 {
		log.Printf("WARNING: export of %q finished with %d warnings", p.Name, len(report.Warnings))
	}
}
