package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	defaults layout.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(defaults layout.Config) *ConfigHandler {
	return &ConfigHandler{
		defaults: defaults,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Backend     string           `json:"backend"`
	AlbumImport bool             `json:"album_import"`
	TitlePolicy string           `json:"title_policy"`
	Defaults    DefaultsInfo     `json:"defaults"`
	FrameStyles []FrameStyleInfo `json:"frame_styles"`
}

// DefaultsInfo represents the settings new projects start with
type DefaultsInfo struct {
	ImagesPerPage int    `json:"images_per_page"`
	SortAscending bool   `json:"sort_ascending"`
	FrameEnabled  bool   `json:"frame_enabled"`
	FrameStyle    string `json:"frame_style"`
	FrameColorHex string `json:"frame_color_hex"`
}

// FrameStyleInfo represents a selectable frame style
type FrameStyleInfo struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	WidthDp float64 `json:"width_dp"`
}

// Get returns the available configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	styles := layout.FrameStyles()
	frameStyles := make([]FrameStyleInfo, len(styles))
	for i, s := range styles {
		frameStyles[i] = FrameStyleInfo{Name: s.String(), Label: s.Label(), WidthDp: s.WidthDp()}
	}

	_, err := database.GetAlbumSource(r.Context())

	response := ConfigResponse{
		Backend:     database.Backend(),
		AlbumImport: err == nil,
		TitlePolicy: h.defaults.TitlePolicy.String(),
		Defaults: DefaultsInfo{
			ImagesPerPage: h.defaults.ImagesPerPage,
			SortAscending: h.defaults.SortAscending,
			FrameEnabled:  h.defaults.FrameEnabled,
			FrameStyle:    h.defaults.FrameStyle.String(),
			FrameColorHex: h.defaults.FrameColorHex,
		},
		FrameStyles: frameStyles,
	}

	respondJSON(w, http.StatusOK, response)
}
