// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
)

// MockProjectStore is an in-memory implementation of database.ProjectWriter
type MockProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*database.Project
	pages    map[string][]layout.Page // by project ID
	now      func() time.Time

	// Error injection
	GetProjectError    error
	ListProjectsError  error
	GetPagesError      error
	CreateProjectError error
	UpdateProjectError error
	DeleteProjectError error
	ReplacePagesError  error
	UpdateTitleError   error
	UpdateCaptionError error
	UpdateOrderError   error

	// ReplaceCalls counts successful page replacements
	ReplaceCalls int
}

// NewMockProjectStore creates a new mock project store
func NewMockProjectStore() *MockProjectStore {
	var tick int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &MockProjectStore{
		projects: make(map[string]*database.Project),
		pages:    make(map[string][]layout.Page),
		// strictly increasing so listings order deterministically
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func clonePages(pages []layout.Page) []layout.Page {
	out := make([]layout.Page, len(pages))
	for i, p := range pages {
		out[i] = p
		out[i].Photos = slices.Clone(p.Photos)
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, database.ErrNotFound)
}

// --- Projects ---

func (m *MockProjectStore) CreateProject(ctx context.Context, p *database.Project) error {
	if m.CreateProjectError != nil {
		return m.CreateProjectError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.projects[p.ID] = &stored
	return nil
}

func (m *MockProjectStore) GetProject(ctx context.Context, id string) (*database.Project, error) {
	if m.GetProjectError != nil {
		return nil, m.GetProjectError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	out := *p
	return &out, nil
}

func (m *MockProjectStore) ListProjects(ctx context.Context) ([]database.ProjectWithCounts, error) {
	if m.ListProjectsError != nil {
		return nil, m.ListProjectsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.ProjectWithCounts, 0, len(m.projects))
	for id, p := range m.projects {
		pc := database.ProjectWithCounts{Project: *p, PageCount: len(m.pages[id])}
		for _, page := range m.pages[id] {
			pc.PhotoCount += len(page.Photos)
		}
		out = append(out, pc)
	}
	slices.SortFunc(out, func(a, b database.ProjectWithCounts) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (m *MockProjectStore) UpdateProject(ctx context.Context, p *database.Project) error {
	if m.UpdateProjectError != nil {
		return m.UpdateProjectError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.projects[p.ID]
	if !ok {
		return notFound("project", p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.now()
	stored := *p
	m.projects[p.ID] = &stored
	return nil
}

func (m *MockProjectStore) DeleteProject(ctx context.Context, id string) error {
	if m.DeleteProjectError != nil {
		return m.DeleteProjectError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return notFound("project", id)
	}
	delete(m.projects, id)
	delete(m.pages, id)
	return nil
}

// --- Pages ---

func (m *MockProjectStore) GetPages(ctx context.Context, projectID string) ([]layout.Page, error) {
	if m.GetPagesError != nil {
		return nil, m.GetPagesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clonePages(m.pages[projectID]), nil
}

// locate returns project ID, page slot and photo slot; photo slot is -1 when
// looking up a page.
func (m *MockProjectStore) locate(pageID, photoID string) (string, int, int, bool) {
	for projectID, pages := range m.pages {
		for i, page := range pages {
			if pageID != "" && page.ID == pageID {
				return projectID, i, -1, true
			}
			for j, ph := range page.Photos {
				if photoID != "" && ph.ID == photoID {
					return projectID, i, j, true
				}
			}
		}
	}
	return "", 0, 0, false
}

func (m *MockProjectStore) PageProject(ctx context.Context, pageID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	projectID, _, _, ok := m.locate(pageID, "")
	if !ok {
		return "", notFound("page", pageID)
	}
	return projectID, nil
}

func (m *MockProjectStore) PhotoProject(ctx context.Context, photoID string) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	projectID, i, _, ok := m.locate("", photoID)
	if !ok {
		return "", "", notFound("photo", photoID)
	}
	return projectID, m.pages[projectID][i].ID, nil
}

func (m *MockProjectStore) ReplacePages(ctx context.Context, projectID string, pages []layout.Page) ([]layout.Page, error) {
	if m.ReplacePagesError != nil {
		return nil, m.ReplacePagesError
	}
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, notFound("project", projectID)
	}
	stored := m.storePages(projectID, pages)
	p.UpdatedAt = m.now()
	return stored, nil
}

// ReplaceProjectLayout fails without any change when either UpdateProjectError
// or ReplacePagesError is set.
func (m *MockProjectStore) ReplaceProjectLayout(ctx context.Context, p *database.Project, pages []layout.Page) ([]layout.Page, error) {
	if m.UpdateProjectError != nil {
		return nil, m.UpdateProjectError
	}
	if m.ReplacePagesError != nil {
		return nil, m.ReplacePagesError
	}
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.projects[p.ID]
	if !ok {
		return nil, notFound("project", p.ID)
	}
	stored := m.storePages(p.ID, pages)
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = m.now()
	project := *p
	m.projects[p.ID] = &project
	return stored, nil
}

func (m *MockProjectStore) storePages(projectID string, pages []layout.Page) []layout.Page {
	stored := clonePages(pages)
	for i := range stored {
		if stored[i].ID == "" {
			stored[i].ID = uuid.New().String()
		}
		for j := range stored[i].Photos {
			if stored[i].Photos[j].ID == "" {
				stored[i].Photos[j].ID = uuid.New().String()
			}
		}
	}
	m.pages[projectID] = stored
	m.ReplaceCalls++
	return clonePages(stored)
}

func (m *MockProjectStore) UpdatePageTitle(ctx context.Context, pageID string, title string) error {
	if m.UpdateTitleError != nil {
		return m.UpdateTitleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	projectID, i, _, ok := m.locate(pageID, "")
	if !ok {
		return notFound("page", pageID)
	}
	m.pages[projectID][i].Title = title
	m.projects[projectID].UpdatedAt = m.now()
	return nil
}

func (m *MockProjectStore) UpdatePhotoCaption(ctx context.Context, photoID string, caption string) error {
	if m.UpdateCaptionError != nil {
		return m.UpdateCaptionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	projectID, i, j, ok := m.locate("", photoID)
	if !ok {
		return notFound("photo", photoID)
	}
	m.pages[projectID][i].Photos[j].Caption = caption
	m.projects[projectID].UpdatedAt = m.now()
	return nil
}

func (m *MockProjectStore) UpdatePhotoPositions(ctx context.Context, pageID string, photoIDs []string) error {
	if m.UpdateOrderError != nil {
		return m.UpdateOrderError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	projectID, i, _, ok := m.locate(pageID, "")
	if !ok {
		return notFound("page", pageID)
	}
	page := &m.pages[projectID][i]
	current := make([]string, len(page.Photos))
	byID := make(map[string]layout.Photo, len(page.Photos))
	for k, ph := range page.Photos {
		current[k] = ph.ID
		byID[ph.ID] = ph
	}
	if err := database.CheckPhotoOrder(current, photoIDs); err != nil {
		return err
	}
	for k, id := range photoIDs {
		ph := byID[id]
		ph.Position = k
		page.Photos[k] = ph
	}
	m.projects[projectID].UpdatedAt = m.now()
	return nil
}

// MockAlbumSource is a mock implementation of database.AlbumSource
type MockAlbumSource struct {
	mu     sync.RWMutex
	albums map[string][]database.AlbumPhoto

	// Error injection
	AlbumPhotosError error
}

// NewMockAlbumSource creates a new mock album source
func NewMockAlbumSource() *MockAlbumSource {
	return &MockAlbumSource{albums: make(map[string][]database.AlbumPhoto)}
}

// AddAlbum stores the photos of an album
func (m *MockAlbumSource) AddAlbum(uid string, photos ...database.AlbumPhoto) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.albums[uid] = photos
}

func (m *MockAlbumSource) AlbumPhotos(ctx context.Context, albumUID string) ([]database.AlbumPhoto, error) {
	if m.AlbumPhotosError != nil {
		return nil, m.AlbumPhotosError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	photos, ok := m.albums[albumUID]
	if !ok {
		return nil, notFound("album", albumUID)
	}
	return slices.Clone(photos), nil
}

// Compile-time checks
var (
	_ database.ProjectWriter = (*MockProjectStore)(nil)
	_ database.AlbumSource   = (*MockAlbumSource)(nil)
)
