package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/database/mock"
)

// createProject creates a project through the handler and returns its ID
func createProject(t *testing.T, h *ProjectsHandler, name string) string {
	t.Helper()
	req := jsonRequest(t, "POST", "/api/v1/projects", map[string]any{"name": name})
	recorder := httptest.NewRecorder()
	h.CreateProject(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	var resp projectResponse
	parseJSONResponse(t, recorder, &resp)
	return resp.ID
}

// addPhotos adds photos with the given URIs and returns the resulting pages
func addPhotos(t *testing.T, h *ProjectsHandler, projectID string, uris ...string) []pageResponse {
	t.Helper()
	photos := make([]map[string]any, len(uris))
	for i, uri := range uris {
		photos[i] = map[string]any{"uri": uri, "date_taken": int64(1_700_000_000_000 + i*1000)}
	}
	req := jsonRequest(t, "POST", "/api/v1/projects/"+projectID+"/photos", map[string]any{"photos": photos})
	req = requestWithChiParams(req, map[string]string{"id": projectID})
	recorder := httptest.NewRecorder()
	h.AddPhotos(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var pages []pageResponse
	parseJSONResponse(t, recorder, &pages)
	return pages
}

func getProject(t *testing.T, h *ProjectsHandler, projectID string) projectDetailResponse {
	t.Helper()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/projects/"+projectID, nil), map[string]string{"id": projectID})
	recorder := httptest.NewRecorder()
	h.GetProject(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var detail projectDetailResponse
	parseJSONResponse(t, recorder, &detail)
	return detail
}

func TestProjectsHandler_CreateProject(t *testing.T) {
	h, _ := newTestHandler(t)

	req := jsonRequest(t, "POST", "/api/v1/projects", map[string]any{
		"name":            "  Urlaub  ",
		"images_per_page": 2,
		"frame_style":     "thick",
	})
	recorder := httptest.NewRecorder()
	h.CreateProject(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp projectResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.ID == "" {
		t.Error("expected project ID")
	}
	if resp.Name != "Urlaub" {
		t.Errorf("expected trimmed name 'Urlaub', got '%s'", resp.Name)
	}
	if resp.ImagesPerPage != 2 {
		t.Errorf("expected 2 images per page, got %d", resp.ImagesPerPage)
	}
	if resp.FrameWidthDp != 2.5 {
		t.Errorf("expected frame width 2.5, got %v", resp.FrameWidthDp)
	}
	if resp.FrameColorHex != "#000000" {
		t.Errorf("expected default frame color, got '%s'", resp.FrameColorHex)
	}
}

func TestProjectsHandler_CreateProjectValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{not json"},
		{"missing name", `{"images_per_page": 2}`},
		{"blank name", `{"name": "   "}`},
		{"bad color", `{"name": "a", "frame_color_hex": "red"}`},
		{"bad style", `{"name": "a", "frame_style": "huge"}`},
		{"bad images per page", `{"name": "a", "images_per_page": 0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(tc.body))
			recorder := httptest.NewRecorder()
			h.CreateProject(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			var result map[string]string
			parseJSONResponse(t, recorder, &result)
			if result["error"] == "" {
				t.Error("expected error message")
			}
		})
	}

	req := httptest.NewRequest("POST", "/api/v1/projects", strings.NewReader(`{"frame_style": "thin"}`))
	recorder := httptest.NewRecorder()
	h.CreateProject(recorder, req)
	assertJSONError(t, recorder, "name is required")
}

func TestProjectsHandler_ListProjects(t *testing.T) {
	h, _ := newTestHandler(t)
	first := createProject(t, h, "Erster")
	addPhotos(t, h, first, "a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg")
	createProject(t, h, "Zweiter")

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	recorder := httptest.NewRecorder()
	h.ListProjects(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var projects []projectResponse
	parseJSONResponse(t, recorder, &projects)
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	for _, p := range projects {
		if p.ID != first {
			continue
		}
		if p.PageCount != 2 || p.PhotoCount != 5 {
			t.Errorf("expected 2 pages and 5 photos, got %d and %d", p.PageCount, p.PhotoCount)
		}
	}
}

func TestProjectsHandler_ListProjectsError(t *testing.T) {
	h, store := newTestHandler(t)
	store.ListProjectsError = errors.New("connection refused")

	recorder := httptest.NewRecorder()
	h.ListProjects(recorder, httptest.NewRequest("GET", "/api/v1/projects", nil))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list projects")
}

func TestProjectsHandler_GetProjectNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/projects/missing", nil), map[string]string{"id": "missing"})
	recorder := httptest.NewRecorder()
	h.GetProject(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestProjectsHandler_DeleteProject(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Weg")

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/projects/"+id, nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.DeleteProject(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	h.DeleteProject(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestProjectsHandler_AddPhotosComposesPages(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")

	pages := addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg")

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0].Photos) != 4 || len(pages[1].Photos) != 2 {
		t.Errorf("expected 4+2 photos, got %d+%d", len(pages[0].Photos), len(pages[1].Photos))
	}
	for i, page := range pages {
		if page.PageIndex != i {
			t.Errorf("page %d has index %d", i, page.PageIndex)
		}
		for j, ph := range page.Photos {
			if ph.Position != j {
				t.Errorf("page %d photo %d has position %d", i, j, ph.Position)
			}
			if ph.ID == "" {
				t.Errorf("page %d photo %d has no ID", i, j)
			}
		}
	}
}

func TestProjectsHandler_AddPhotosValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"invalid JSON", id, "[", http.StatusBadRequest},
		{"empty list", id, `{"photos": []}`, http.StatusBadRequest},
		{"missing URI", id, `{"photos": [{"caption": "x"}]}`, http.StatusBadRequest},
		{"unknown project", "missing", `{"photos": [{"uri": "a.jpg"}]}`, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/projects/"+tc.id+"/photos", strings.NewReader(tc.body))
			req = requestWithChiParams(req, map[string]string{"id": tc.id})
			recorder := httptest.NewRecorder()
			h.AddPhotos(recorder, req)
			assertStatusCode(t, recorder, tc.status)
		})
	}
}

func TestProjectsHandler_RemovePhoto(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	pages := addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg")
	victim := pages[0].Photos[0].ID

	req := httptest.NewRequest("DELETE", "/api/v1/projects/"+id+"/photos/"+victim, nil)
	req = requestWithChiParams(req, map[string]string{"id": id, "photoId": victim})
	recorder := httptest.NewRecorder()
	h.RemovePhoto(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var after []pageResponse
	parseJSONResponse(t, recorder, &after)
	if len(after) != 1 || len(after[0].Photos) != 4 {
		t.Fatalf("expected one full page after removal, got %+v", after)
	}
	for _, ph := range after[0].Photos {
		if ph.ID == victim {
			t.Error("removed photo still present")
		}
	}

	recorder = httptest.NewRecorder()
	h.RemovePhoto(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestProjectsHandler_UpdateSettingsReflows(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg")

	req := jsonRequest(t, "PUT", "/api/v1/projects/"+id+"/settings", map[string]any{"images_per_page": 2, "frame_enabled": false})
	req = requestWithChiParams(req, map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.UpdateSettings(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var detail projectDetailResponse
	parseJSONResponse(t, recorder, &detail)
	if detail.ImagesPerPage != 2 || detail.FrameEnabled {
		t.Errorf("settings not applied: %+v", detail.projectResponse)
	}
	if len(detail.Pages) != 3 || detail.PageCount != 3 {
		t.Errorf("expected 3 pages after reflow, got %d", len(detail.Pages))
	}
	if detail.PhotoCount != 5 {
		t.Errorf("expected 5 photos, got %d", detail.PhotoCount)
	}
}

func TestProjectsHandler_UpdateSettingsInvalid(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")

	req := jsonRequest(t, "PUT", "/api/v1/projects/"+id+"/settings", map[string]any{"frame_color_hex": "#12345"})
	req = requestWithChiParams(req, map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.UpdateSettings(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	if got := getProject(t, h, id).FrameColorHex; got != "#000000" {
		t.Errorf("color changed to %s after rejected update", got)
	}
}

func TestProjectsHandler_UpdatePageTitle(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	pages := addPhotos(t, h, id, "1.jpg")
	pageID := pages[0].ID

	req := jsonRequest(t, "PUT", "/api/v1/pages/"+pageID+"/title", map[string]string{"title": "Ankunft"})
	req = requestWithChiParams(req, map[string]string{"id": pageID})
	recorder := httptest.NewRecorder()
	h.UpdatePageTitle(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	if got := getProject(t, h, id).Pages[0].Title; got != "Ankunft" {
		t.Errorf("expected title 'Ankunft', got '%s'", got)
	}

	req = jsonRequest(t, "PUT", "/api/v1/pages/missing/title", map[string]string{"title": "x"})
	req = requestWithChiParams(req, map[string]string{"id": "missing"})
	recorder = httptest.NewRecorder()
	h.UpdatePageTitle(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestProjectsHandler_UpdatePhotoCaption(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	pages := addPhotos(t, h, id, "1.jpg")
	photoID := pages[0].Photos[0].ID

	req := jsonRequest(t, "PUT", "/api/v1/photos/"+photoID+"/caption", map[string]string{"caption": "Am Strand"})
	req = requestWithChiParams(req, map[string]string{"id": photoID})
	recorder := httptest.NewRecorder()
	h.UpdatePhotoCaption(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	if got := getProject(t, h, id).Pages[0].Photos[0].Caption; got != "Am Strand" {
		t.Errorf("expected caption 'Am Strand', got '%s'", got)
	}
}

func TestProjectsHandler_ReorderPhotos(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	pages := addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg")
	page := pages[0]
	reversed := []string{page.Photos[2].ID, page.Photos[1].ID, page.Photos[0].ID}

	req := jsonRequest(t, "PUT", "/api/v1/pages/"+page.ID+"/order", map[string]any{"photo_ids": reversed})
	req = requestWithChiParams(req, map[string]string{"id": page.ID})
	recorder := httptest.NewRecorder()
	h.ReorderPhotos(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var got pageResponse
	parseJSONResponse(t, recorder, &got)
	for i, ph := range got.Photos {
		if ph.ID != reversed[i] || ph.Position != i {
			t.Errorf("position %d: got %s at %d, want %s", i, ph.ID, ph.Position, reversed[i])
		}
	}
}

func TestProjectsHandler_ReorderPhotosRejectsForeignIDs(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	pages := addPhotos(t, h, id, "1.jpg", "2.jpg")
	page := pages[0]

	tests := []struct {
		name string
		ids  []string
	}{
		{"missing photo", []string{page.Photos[0].ID}},
		{"unknown photo", []string{page.Photos[0].ID, "stranger"}},
		{"duplicate photo", []string{page.Photos[0].ID, page.Photos[0].ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := jsonRequest(t, "PUT", "/api/v1/pages/"+page.ID+"/order", map[string]any{"photo_ids": tc.ids})
			req = requestWithChiParams(req, map[string]string{"id": page.ID})
			recorder := httptest.NewRecorder()
			h.ReorderPhotos(recorder, req)
			assertStatusCode(t, recorder, http.StatusConflict)
		})
	}
}

func TestProjectsHandler_ExportPDF(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg")

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/projects/"+id+"/export", nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.Export(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/pdf")
	if !bytes.HasPrefix(recorder.Body.Bytes(), []byte("%PDF-")) {
		t.Error("body is not a PDF document")
	}
	disposition := recorder.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, `filename="Fotoseiten_`) || !strings.HasSuffix(disposition, `.pdf"`) {
		t.Errorf("unexpected Content-Disposition: %s", disposition)
	}
	if recorder.Header().Get("X-Export-Warnings") != "" {
		t.Error("expected no export warnings")
	}
}

func TestProjectsHandler_ExportReport(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Fotos")
	addPhotos(t, h, id, "1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg")

	req := httptest.NewRequest("GET", "/api/v1/projects/"+id+"/export?format=report", nil)
	req = requestWithChiParams(req, map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.Export(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")
	var report struct {
		PageCount  int `json:"page_count"`
		PhotoCount int `json:"photo_count"`
	}
	parseJSONResponse(t, recorder, &report)
	if report.PageCount != 2 || report.PhotoCount != 5 {
		t.Errorf("expected 2 pages and 5 photos, got %d and %d", report.PageCount, report.PhotoCount)
	}
}

func TestProjectsHandler_ExportEmptyProject(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Leer")

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/projects/"+id+"/export", nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.Export(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestProjectsHandler_ExportToFile(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createProject(t, h, "Sommer in Köln")
	addPhotos(t, h, id, "1.jpg")

	req := requestWithChiParams(httptest.NewRequest("POST", "/api/v1/projects/"+id+"/export", nil), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.ExportToFile(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var resp struct {
		Path string `json:"path"`
	}
	parseJSONResponse(t, recorder, &resp)
	if !strings.Contains(resp.Path, "sommer-in-koln") {
		t.Errorf("expected export below the project slug, got %s", resp.Path)
	}
}

func TestProjectsHandler_ImportAlbum(t *testing.T) {
	database.ResetForTesting()
	t.Cleanup(database.ResetForTesting)

	h, _ := newTestHandler(t)
	id := createProject(t, h, "Import")

	body := map[string]string{"album_uid": "at1", "originals_path": "/originals"}
	req := requestWithChiParams(jsonRequest(t, "POST", "/api/v1/projects/"+id+"/import", body), map[string]string{"id": id})
	recorder := httptest.NewRecorder()
	h.ImportAlbum(recorder, req)
	assertStatusCode(t, recorder, http.StatusServiceUnavailable)

	source := mock.NewMockAlbumSource()
	source.AddAlbum("at1",
		database.AlbumPhoto{UID: "ph1", Path: "2024/05/a.jpg", Description: "Ankunft", TakenAt: 2000},
		database.AlbumPhoto{UID: "ph2", Path: "2024/05/b.jpg", TakenAt: 1000},
	)
	database.RegisterAlbumSource(func() database.AlbumSource { return source })

	req = requestWithChiParams(jsonRequest(t, "POST", "/api/v1/projects/"+id+"/import", body), map[string]string{"id": id})
	recorder = httptest.NewRecorder()
	h.ImportAlbum(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	var pages []pageResponse
	parseJSONResponse(t, recorder, &pages)
	if len(pages) != 1 || len(pages[0].Photos) != 2 {
		t.Fatalf("expected one page with 2 photos, got %+v", pages)
	}
	if pages[0].Photos[0].URI != "/originals/2024/05/b.jpg" {
		t.Errorf("expected oldest photo first, got %s", pages[0].Photos[0].URI)
	}
	if pages[0].Photos[1].Caption != "Ankunft" {
		t.Errorf("expected description as caption, got '%s'", pages[0].Photos[1].Caption)
	}

	req = requestWithChiParams(jsonRequest(t, "POST", "/api/v1/projects/"+id+"/import", map[string]string{}), map[string]string{"id": id})
	recorder = httptest.NewRecorder()
	h.ImportAlbum(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "album_uid is required")
}
