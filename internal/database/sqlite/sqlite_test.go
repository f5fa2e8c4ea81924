package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "pages.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newProject(name string) *database.Project {
	return &database.Project{
		Name:          name,
		ImagesPerPage: 4,
		SortAscending: true,
		FrameEnabled:  true,
		FrameStyle:    "Dick",
		FrameColorHex: "#336699",
	}
}

func twoPages() []layout.Page {
	return []layout.Page{
		{Title: "Seite 1", PageIndex: 0, Photos: []layout.Photo{
			{URI: "file:///a.jpg", Position: 0, DateTaken: 100},
			{URI: "file:///b.jpg", Position: 1, DateTaken: 200, Caption: "Strand"},
			{URI: "file:///c.jpg", Position: 2, DateTaken: 300},
		}},
		{Title: "", PageIndex: 1, Photos: []layout.Photo{
			{URI: "file:///d.jpg", Position: 0, DateTaken: 400},
		}},
	}
}

func TestStore_ProjectRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := newProject("Urlaub")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "Urlaub" || got.FrameStyle != "Dick" || got.FrameColorHex != "#336699" || !got.SortAscending || !got.FrameEnabled {
		t.Errorf("unexpected project: %+v", got)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt: expected %v, got %v", p.CreatedAt, got.CreatedAt)
	}

	p.Name = "Sommer"
	p.SortAscending = false
	p.ImagesPerPage = 6
	if err := s.UpdateProject(ctx, p); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	got, _ = s.GetProject(ctx, p.ID)
	if got.Name != "Sommer" || got.SortAscending || got.ImagesPerPage != 6 {
		t.Errorf("update not stored: %+v", got)
	}
}

func TestStore_NotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetProject(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("GetProject: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateProject(ctx, &database.Project{ID: "missing", ImagesPerPage: 4}); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdateProject: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteProject(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("DeleteProject: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReplacePages(ctx, "missing", nil); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("ReplacePages: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePageTitle(ctx, "missing", "x"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdatePageTitle: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePhotoCaption(ctx, "missing", "x"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdatePhotoCaption: expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePhotoPositions(ctx, "missing", nil); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("UpdatePhotoPositions: expected ErrNotFound, got %v", err)
	}
	if _, err := s.PageProject(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("PageProject: expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.PhotoProject(ctx, "missing"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("PhotoProject: expected ErrNotFound, got %v", err)
	}
}

func TestStore_ReplacePages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProject("Urlaub")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatal(err)
	}

	stored, err := s.ReplacePages(ctx, p.ID, twoPages())
	if err != nil {
		t.Fatalf("ReplacePages: %v", err)
	}
	got, err := s.GetPages(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(got))
	}
	for i := range got {
		if got[i].ID != stored[i].ID {
			t.Errorf("page %d: ID %q, want %q", i, got[i].ID, stored[i].ID)
		}
		if len(got[i].Photos) != len(stored[i].Photos) {
			t.Fatalf("page %d: %d photos, want %d", i, len(got[i].Photos), len(stored[i].Photos))
		}
		for j := range got[i].Photos {
			if got[i].Photos[j] != stored[i].Photos[j] {
				t.Errorf("page %d photo %d: %+v, want %+v", i, j, got[i].Photos[j], stored[i].Photos[j])
			}
		}
	}

	// Replacing keeps supplied IDs and drops everything else.
	next := []layout.Page{{ID: stored[0].ID, Title: "Neu", PageIndex: 0, Photos: stored[0].Photos[:1]}}
	if _, err := s.ReplacePages(ctx, p.ID, next); err != nil {
		t.Fatalf("ReplacePages: %v", err)
	}
	got, _ = s.GetPages(ctx, p.ID)
	if len(got) != 1 || got[0].ID != stored[0].ID || got[0].Title != "Neu" || len(got[0].Photos) != 1 {
		t.Errorf("unexpected pages after replace: %+v", got)
	}
	if got[0].Photos[0].ID != stored[0].Photos[0].ID {
		t.Errorf("photo ID not kept")
	}

	// Empty project has no pages.
	if _, err := s.ReplacePages(ctx, p.ID, nil); err != nil {
		t.Fatalf("ReplacePages(nil): %v", err)
	}
	got, _ = s.GetPages(ctx, p.ID)
	if len(got) != 0 {
		t.Errorf("expected no pages, got %d", len(got))
	}
}

func TestStore_ReplacePagesRejectsInconsistentPages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProject("Urlaub")
	s.CreateProject(ctx, p)
	if _, err := s.ReplacePages(ctx, p.ID, twoPages()); err != nil {
		t.Fatal(err)
	}

	broken := twoPages()
	broken[1].PageIndex = 5
	if _, err := s.ReplacePages(ctx, p.ID, broken); !errors.Is(err, layout.ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
	got, _ := s.GetPages(ctx, p.ID)
	if len(got) != 2 {
		t.Errorf("stored pages changed: %d pages", len(got))
	}
}

func TestStore_ReplaceProjectLayout(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProject("Urlaub")
	if err := s.CreateProject(ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReplacePages(ctx, p.ID, twoPages()); err != nil {
		t.Fatal(err)
	}

	p.ImagesPerPage = 6
	single := []layout.Page{{PageIndex: 0, Photos: []layout.Photo{
		{URI: "file:///a.jpg", Position: 0}, {URI: "file:///b.jpg", Position: 1},
	}}}
	if _, err := s.ReplaceProjectLayout(ctx, p, single); err != nil {
		t.Fatalf("ReplaceProjectLayout: %v", err)
	}
	got, _ := s.GetProject(ctx, p.ID)
	pages, _ := s.GetPages(ctx, p.ID)
	if got.ImagesPerPage != 6 || len(pages) != 1 {
		t.Errorf("layout not stored: images per page %d, %d pages", got.ImagesPerPage, len(pages))
	}

	// A photo ID owned by another project violates the primary key halfway
	// through; nothing of the update may stick.
	other := newProject("Andere")
	s.CreateProject(ctx, other)
	otherPages, err := s.ReplacePages(ctx, other.ID, twoPages())
	if err != nil {
		t.Fatal(err)
	}
	p.ImagesPerPage = 2
	clash := []layout.Page{{PageIndex: 0, Photos: []layout.Photo{
		{URI: "file:///a.jpg", Position: 0},
		{ID: otherPages[0].Photos[0].ID, URI: "file:///b.jpg", Position: 1},
	}}}
	if _, err := s.ReplaceProjectLayout(ctx, p, clash); err == nil {
		t.Fatal("expected duplicate photo ID to fail")
	}
	got, _ = s.GetProject(ctx, p.ID)
	after, _ := s.GetPages(ctx, p.ID)
	if got.ImagesPerPage != 6 {
		t.Errorf("settings changed by failed update: %d", got.ImagesPerPage)
	}
	if len(after) != 1 || after[0].ID != pages[0].ID {
		t.Errorf("pages changed by failed update: %+v", after)
	}

	if _, err := s.ReplaceProjectLayout(ctx, &database.Project{ID: "missing", ImagesPerPage: 4}, nil); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_EditsAndLookups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := newProject("Urlaub")
	s.CreateProject(ctx, p)
	stored, err := s.ReplacePages(ctx, p.ID, twoPages())
	if err != nil {
		t.Fatal(err)
	}

	owner, err := s.PageProject(ctx, stored[1].ID)
	if err != nil || owner != p.ID {
		t.Errorf("PageProject = %q, %v", owner, err)
	}
	owner, pageID, err := s.PhotoProject(ctx, stored[0].Photos[2].ID)
	if err != nil || owner != p.ID || pageID != stored[0].ID {
		t.Errorf("PhotoProject = %q, %q, %v", owner, pageID, err)
	}

	if err := s.UpdatePageTitle(ctx, stored[1].ID, "Abreise"); err != nil {
		t.Fatalf("UpdatePageTitle: %v", err)
	}
	if err := s.UpdatePhotoCaption(ctx, stored[0].Photos[0].ID, "Ankunft"); err != nil {
		t.Fatalf("UpdatePhotoCaption: %v", err)
	}

	order := []string{stored[0].Photos[2].ID, stored[0].Photos[0].ID, stored[0].Photos[1].ID}
	if err := s.UpdatePhotoPositions(ctx, stored[0].ID, order); err != nil {
		t.Fatalf("UpdatePhotoPositions: %v", err)
	}

	got, _ := s.GetPages(ctx, p.ID)
	if got[1].Title != "Abreise" {
		t.Errorf("title: got %q", got[1].Title)
	}
	for i, id := range order {
		if got[0].Photos[i].ID != id || got[0].Photos[i].Position != i {
			t.Errorf("position %d: got %s@%d, want %s", i, got[0].Photos[i].ID, got[0].Photos[i].Position, id)
		}
	}
	if got[0].Photos[1].Caption != "Ankunft" {
		t.Errorf("caption: got %q", got[0].Photos[1].Caption)
	}

	bad := [][]string{
		order[:2],
		{order[0], order[0], order[1]},
		{order[0], order[1], stored[1].Photos[0].ID},
	}
	for _, b := range bad {
		if err := s.UpdatePhotoPositions(ctx, stored[0].ID, b); !errors.Is(err, layout.ErrConsistency) {
			t.Errorf("UpdatePhotoPositions(%v): expected ErrConsistency, got %v", b, err)
		}
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := newProject("Erstes")
	second := newProject("Zweites")
	s.CreateProject(ctx, first)
	s.CreateProject(ctx, second)
	if _, err := s.ReplacePages(ctx, first.ID, twoPages()); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(list))
	}
	if list[0].ID != first.ID {
		t.Errorf("expected recently edited project first, got %s", list[0].Name)
	}
	if list[0].PageCount != 2 || list[0].PhotoCount != 4 {
		t.Errorf("counts: %d pages, %d photos", list[0].PageCount, list[0].PhotoCount)
	}
	if list[1].PageCount != 0 || list[1].PhotoCount != 0 {
		t.Errorf("empty project counts: %d pages, %d photos", list[1].PageCount, list[1].PhotoCount)
	}

	if err := s.DeleteProject(ctx, first.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	var orphans int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_photos`).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("expected photos to be deleted, %d left", orphans)
	}
	list, _ = s.ListProjects(ctx)
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("unexpected list after delete: %+v", list)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	p := newProject("Urlaub")
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.GetProject(context.Background(), p.ID); err != nil {
		t.Errorf("project lost after reopen: %v", err)
	}
	applied, err := s.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("MigrationsApplied: %v", err)
	}
	if len(applied) != 1 || applied[0] != "001_projects.sql" {
		t.Errorf("unexpected migrations: %v", applied)
	}
}

func TestInitialize_RegistersStore(t *testing.T) {
	database.ResetForTesting()
	t.Cleanup(database.ResetForTesting)

	s, err := Initialize(filepath.Join(t.TempDir(), "pages.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if database.Backend() != "sqlite" {
		t.Errorf("expected sqlite backend, got %q", database.Backend())
	}
	w, err := database.GetProjectWriter(context.Background())
	if err != nil || w != s {
		t.Errorf("GetProjectWriter = %v, %v", w, err)
	}
}
