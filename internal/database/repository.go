package database

import (
	"context"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// ProjectReader provides read-only access to projects and their pages
type ProjectReader interface {
	// GetProject returns ErrNotFound for an unknown ID
	GetProject(ctx context.Context, id string) (*Project, error)
	// ListProjects returns all projects, most recently updated first
	ListProjects(ctx context.Context) ([]ProjectWithCounts, error)
	// GetPages returns the pages ordered by page index, photos ordered by position
	GetPages(ctx context.Context, projectID string) ([]layout.Page, error)
	// PageProject returns the ID of the project owning a page
	PageProject(ctx context.Context, pageID string) (string, error)
	// PhotoProject returns the IDs of the project and page holding a photo
	PhotoProject(ctx context.Context, photoID string) (projectID, pageID string, err error)
}

// ProjectWriter provides write access to projects and their pages
type ProjectWriter interface {
	ProjectReader

	CreateProject(ctx context.Context, project *Project) error
	// UpdateProject stores name and layout settings
	UpdateProject(ctx context.Context, project *Project) error
	// DeleteProject removes the project with all pages and photos
	DeleteProject(ctx context.Context, id string) error

	// ReplacePages atomically replaces every page of the project. Missing page
	// and photo IDs are assigned; the stored pages are returned.
	ReplacePages(ctx context.Context, projectID string, pages []layout.Page) ([]layout.Page, error)
	// ReplaceProjectLayout stores name and settings and replaces the pages in
	// one transaction; on error neither is changed.
	ReplaceProjectLayout(ctx context.Context, project *Project, pages []layout.Page) ([]layout.Page, error)
	UpdatePageTitle(ctx context.Context, pageID string, title string) error
	UpdatePhotoCaption(ctx context.Context, photoID string, caption string) error
	// UpdatePhotoPositions stores position i for photoIDs[i]; photoIDs must be
	// exactly the photos of the page.
	UpdatePhotoPositions(ctx context.Context, pageID string, photoIDs []string) error
}

// AlbumPhoto is a photo listed by an external catalog.
type AlbumPhoto struct {
	UID         string
	Path        string
	Description string
	TakenAt     int64 // epoch millis
}

// AlbumSource reads photos of albums kept in an external catalog
type AlbumSource interface {
	AlbumPhotos(ctx context.Context, albumUID string) ([]AlbumPhoto, error)
}
