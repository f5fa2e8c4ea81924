package database

import (
	"errors"
	"time"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// ErrNotFound is returned when a project, page or photo does not exist.
var ErrNotFound = errors.New("not found")

// Project is a named set of photos arranged into pages, with its layout settings.
type Project struct {
	ID            string
	Name          string
	ImagesPerPage int
	SortAscending bool
	FrameEnabled  bool
	FrameStyle    string // display label, e.g. "Mittel"
	FrameColorHex string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LayoutConfig returns the project's layout settings. A frame style label the
// current code does not know falls back to the medium style.
func (p Project) LayoutConfig(policy layout.TitlePolicy) layout.Config {
	style, err := layout.ParseFrameStyle(p.FrameStyle)
	if err != nil {
		style = layout.FrameMedium
	}
	return layout.Config{
		ImagesPerPage: p.ImagesPerPage,
		SortAscending: p.SortAscending,
		FrameEnabled:  p.FrameEnabled,
		FrameStyle:    style,
		FrameColorHex: p.FrameColorHex,
		TitlePolicy:   policy,
	}
}

// SetLayout copies the layout settings into the project.
func (p *Project) SetLayout(cfg layout.Config) {
	p.ImagesPerPage = cfg.ImagesPerPage
	p.SortAscending = cfg.SortAscending
	p.FrameEnabled = cfg.FrameEnabled
	p.FrameStyle = cfg.FrameStyle.Label()
	p.FrameColorHex = cfg.FrameColorHex
}

// FrameWidthDp is derived from the frame style.
func (p Project) FrameWidthDp() float64 {
	return p.LayoutConfig(layout.TitlesKeepUnchanged).FrameWidthDp()
}

// ProjectWithCounts adds page and photo totals for listings.
type ProjectWithCounts struct {
	Project
	PageCount  int
	PhotoCount int
}
