package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-pages/internal/constants"
	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
	"github.com/kozaktomas/photo-pages/internal/project"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ProjectsHandler handles project, page and photo endpoints
type ProjectsHandler struct {
	service *project.Service
}

// NewProjectsHandler creates a new projects handler
func NewProjectsHandler(svc *project.Service) *ProjectsHandler {
	return &ProjectsHandler{service: svc}
}

// --- Responses ---

type projectResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ImagesPerPage int     `json:"images_per_page"`
	SortAscending bool    `json:"sort_ascending"`
	FrameEnabled  bool    `json:"frame_enabled"`
	FrameStyle    string  `json:"frame_style"`
	FrameWidthDp  float64 `json:"frame_width_dp"`
	FrameColorHex string  `json:"frame_color_hex"`
	PageCount     int     `json:"page_count"`
	PhotoCount    int     `json:"photo_count"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type projectDetailResponse struct {
	projectResponse
	Pages []pageResponse `json:"pages"`
}

type pageResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	PageIndex int             `json:"page_index"`
	Photos    []photoResponse `json:"photos"`
}

type photoResponse struct {
	ID        string `json:"id"`
	URI       string `json:"uri"`
	Caption   string `json:"caption"`
	Position  int    `json:"position"`
	DateTaken int64  `json:"date_taken"`
}

func toProjectResponse(p database.Project, pageCount, photoCount int) projectResponse {
	return projectResponse{
		ID:            p.ID,
		Name:          p.Name,
		ImagesPerPage: p.ImagesPerPage,
		SortAscending: p.SortAscending,
		FrameEnabled:  p.FrameEnabled,
		FrameStyle:    p.FrameStyle,
		FrameWidthDp:  p.FrameWidthDp(),
		FrameColorHex: p.FrameColorHex,
		PageCount:     pageCount,
		PhotoCount:    photoCount,
		CreatedAt:     p.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:     p.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toPageResponses(pages []layout.Page) []pageResponse {
	result := make([]pageResponse, len(pages))
	for i, p := range layout.Sorted(pages) {
		photos := make([]photoResponse, len(p.Photos))
		for j, ph := range p.Photos {
			photos[j] = photoResponse{
				ID:        ph.ID,
				URI:       ph.URI,
				Caption:   ph.Caption,
				Position:  ph.Position,
				DateTaken: ph.DateTaken,
			}
		}
		result[i] = pageResponse{ID: p.ID, Title: p.Title, PageIndex: p.PageIndex, Photos: photos}
	}
	return result
}

func toDetailResponse(d *project.Detail) projectDetailResponse {
	return projectDetailResponse{
		projectResponse: toProjectResponse(d.Project, len(d.Pages), len(layout.Flatten(d.Pages))),
		Pages:           toPageResponses(d.Pages),
	}
}

// --- Projects ---

func (h *ProjectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		respondServiceError(w, err, "failed to list projects")
		return
	}
	result := make([]projectResponse, len(projects))
	for i, p := range projects {
		result[i] = toProjectResponse(p.Project, p.PageCount, p.PhotoCount)
	}
	respondJSON(w, http.StatusOK, result)
}

type settingsRequest struct {
	Name          *string `json:"name"`
	ImagesPerPage *int    `json:"images_per_page"`
	SortAscending *bool   `json:"sort_ascending"`
	FrameEnabled  *bool   `json:"frame_enabled"`
	FrameStyle    *string `json:"frame_style"`
	FrameColorHex *string `json:"frame_color_hex"`
}

func (req settingsRequest) update() project.SettingsUpdate {
	return project.SettingsUpdate{
		Name:          req.Name,
		ImagesPerPage: req.ImagesPerPage,
		SortAscending: req.SortAscending,
		FrameEnabled:  req.FrameEnabled,
		FrameStyle:    req.FrameStyle,
		FrameColorHex: req.FrameColorHex,
	}
}

// config overlays the requested settings on the defaults.
func (req settingsRequest) config(defaults layout.Config) (layout.Config, error) {
	cfg := defaults
	if req.ImagesPerPage != nil {
		cfg.ImagesPerPage = *req.ImagesPerPage
	}
	if req.SortAscending != nil {
		cfg.SortAscending = *req.SortAscending
	}
	if req.FrameEnabled != nil {
		cfg.FrameEnabled = *req.FrameEnabled
	}
	if req.FrameStyle != nil {
		style, err := layout.ParseFrameStyle(*req.FrameStyle)
		if err != nil {
			return cfg, err
		}
		cfg.FrameStyle = style
	}
	if req.FrameColorHex != nil {
		cfg.FrameColorHex = *req.FrameColorHex
	}
	return cfg, nil
}

func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Name == nil {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	cfg, err := req.config(h.service.Defaults())
	if err != nil {
		respondServiceError(w, err, "failed to create project")
		return
	}

	p, err := h.service.CreateProject(r.Context(), *req.Name, &cfg)
	if err != nil {
		respondServiceError(w, err, "failed to create project")
		return
	}
	respondJSON(w, http.StatusCreated, toProjectResponse(*p, 0, 0))
}

func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "failed to get project")
		return
	}
	respondJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *ProjectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "failed to delete project")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *ProjectsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	detail, err := h.service.UpdateSettings(r.Context(), chi.URLParam(r, "id"), req.update())
	if err != nil {
		respondServiceError(w, err, "failed to update settings")
		return
	}
	respondJSON(w, http.StatusOK, toDetailResponse(detail))
}

// --- Photos ---

type addPhotosRequest struct {
	Photos []struct {
		URI       string `json:"uri"`
		Caption   string `json:"caption"`
		DateTaken int64  `json:"date_taken"`
	} `json:"photos"`
}

func (h *ProjectsHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	var req addPhotosRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Photos) > constants.MaxPhotosPerRequest {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d photos per request", constants.MaxPhotosPerRequest))
		return
	}
	photos := make([]layout.Photo, len(req.Photos))
	for i, p := range req.Photos {
		photos[i] = layout.Photo{URI: p.URI, Caption: p.Caption, DateTaken: p.DateTaken}
	}
	pages, err := h.service.AddPhotos(r.Context(), chi.URLParam(r, "id"), photos)
	if err != nil {
		respondServiceError(w, err, "failed to add photos")
		return
	}
	respondJSON(w, http.StatusOK, toPageResponses(pages))
}

func (h *ProjectsHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.RemovePhoto(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "photoId"))
	if err != nil {
		respondServiceError(w, err, "failed to remove photo")
		return
	}
	respondJSON(w, http.StatusOK, toPageResponses(pages))
}

func (h *ProjectsHandler) ImportAlbum(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AlbumUID      string `json:"album_uid"`
		OriginalsPath string `json:"originals_path"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.AlbumUID == "" {
		respondError(w, http.StatusBadRequest, "album_uid is required")
		return
	}
	source, err := database.GetAlbumSource(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "PhotoPrism catalog not configured")
		return
	}
	pages, err := h.service.ImportAlbum(r.Context(), chi.URLParam(r, "id"), source, req.AlbumUID, req.OriginalsPath)
	if err != nil {
		respondServiceError(w, err, "failed to import album")
		return
	}
	respondJSON(w, http.StatusOK, toPageResponses(pages))
}

// --- Pages ---

func (h *ProjectsHandler) UpdatePageTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.service.UpdatePageTitle(r.Context(), chi.URLParam(r, "id"), req.Title); err != nil {
		respondServiceError(w, err, "failed to update title")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *ProjectsHandler) ReorderPhotos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoIDs []string `json:"photo_ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	page, err := h.service.ReorderPhotos(r.Context(), chi.URLParam(r, "id"), req.PhotoIDs)
	if err != nil {
		respondServiceError(w, err, "failed to reorder photos")
		return
	}
	respondJSON(w, http.StatusOK, toPageResponses([]layout.Page{*page})[0])
}

func (h *ProjectsHandler) UpdatePhotoCaption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caption string `json:"caption"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := h.service.UpdatePhotoCaption(r.Context(), chi.URLParam(r, "id"), req.Caption); err != nil {
		respondServiceError(w, err, "failed to update caption")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// --- Export ---

// Export streams the project as PDF. ?format=report answers with the export
// report as JSON instead.
func (h *ProjectsHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	report, err := h.service.WriteExport(r.Context(), id, &buf)
	if err != nil {
		respondServiceError(w, err, "PDF generation failed")
		return
	}

	if r.URL.Query().Get("format") == "report" {
		respondJSON(w, http.StatusOK, report)
		return
	}

	if len(report.Warnings) > 0 {
		w.Header().Set(constants.HeaderExportWarnings, strconv.Itoa(len(report.Warnings)))
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(report.FileName)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logWriteError(id, err)
	}
}

// ExportToFile writes the document into the server's export directory.
func (h *ProjectsHandler) ExportToFile(w http.ResponseWriter, r *http.Request) {
	path, report, err := h.service.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "PDF generation failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"path": path, "report": report})
}

func logWriteError(projectID string, err error) {
	log.Printf("WARNING: export of project %s: write response: %v", sanitizeForLog(projectID), err)
}
