package render

import (
	"image"
	"math"
	"strings"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// Page canvas in device units (A4 at 300 DPI).
const (
	PageW = 2480
	PageH = 3508
)

const (
	Margin          = 140.0
	CellPadding     = 24.0
	HeaderTextSize  = 48.0
	CaptionTextSize = 32.0

	// frameScale converts the frame style width (dp) to device units.
	frameScale = 3.0
	// frameAlpha is the fixed alpha applied to the frame color.
	frameAlpha = 200
)

// Rect is a rectangle in device units, origin at the top-left of the page.
type Rect struct {
	X, Y, W, H float64
}

// Bottom returns the Y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Pixels rounds the rectangle to the pixel grid.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	)
}

// GridShape returns the grid for a photo count. Only 4–6 photos per page are
// laid out "naturally": counts above 6 keep the 2-row grid and the photos past
// rows*columns are not drawn; counts below 4 leave cells of the 2x2 grid empty.
func GridShape(count int) (columns, rows int) {
	columns = 2
	if count >= 5 {
		columns = 3
	}
	rows = 2
	if count == 6 {
		rows = 3
	}
	return columns, rows
}

// PageGeometry holds the computed grid of one page.
type PageGeometry struct {
	HeaderHeight    float64
	AvailableWidth  float64
	AvailableHeight float64
	Columns, Rows   int
	CellWidth       float64
	CellHeight      float64
	GridTop         float64
}

// Capacity is the number of cells that get drawn.
func (g PageGeometry) Capacity() int {
	return g.Columns * g.Rows
}

// CellLayout is the placement of one drawn photo.
type CellLayout struct {
	Index int // index into the page's photos, in position order
	Cell  Rect
	Image Rect
	// CaptionX/CaptionBaseline locate the caption text; unused without a caption.
	CaptionX        float64
	CaptionBaseline float64
	HasCaption      bool
}

// hasText treats whitespace-only titles and captions as absent.
func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}

// ComputeGeometry derives the grid from the page title and photo count.
func ComputeGeometry(page layout.Page) PageGeometry {
	headerHeight := 0.0
	if hasText(page.Title) {
		headerHeight = HeaderTextSize + CellPadding
	}
	columns, rows := GridShape(len(page.Photos))
	availableWidth := PageW - Margin*2
	availableHeight := PageH - Margin*2 - headerHeight

	return PageGeometry{
		HeaderHeight:    headerHeight,
		AvailableWidth:  availableWidth,
		AvailableHeight: availableHeight,
		Columns:         columns,
		Rows:            rows,
		CellWidth:       (availableWidth - CellPadding*float64(columns-1)) / float64(columns),
		CellHeight:      (availableHeight - CellPadding*float64(rows-1)) / float64(rows),
		GridTop:         Margin + headerHeight,
	}
}

// LayoutCells places the page's photos (in position order) on the grid.
// Photos beyond the grid capacity are not returned.
func LayoutCells(page layout.Page, g PageGeometry) []CellLayout {
	cells := make([]CellLayout, 0, min(len(page.Photos), g.Capacity()))
	for k, photo := range page.Photos {
		row := k / g.Columns
		col := k % g.Columns
		if row >= g.Rows {
			continue
		}
		cell := Rect{
			X: Margin + float64(col)*(g.CellWidth+CellPadding),
			Y: g.GridTop + float64(row)*(g.CellHeight+CellPadding),
			W: g.CellWidth,
			H: g.CellHeight,
		}
		captionHeight := 0.0
		withCaption := hasText(photo.Caption)
		if withCaption {
			captionHeight = CaptionTextSize + CellPadding
		}
		img := Rect{X: cell.X, Y: cell.Y, W: cell.W, H: cell.H - captionHeight}
		cells = append(cells, CellLayout{
			Index:           k,
			Cell:            cell,
			Image:           img,
			CaptionX:        cell.X,
			CaptionBaseline: img.Bottom() + CaptionTextSize,
			HasCaption:      withCaption,
		})
	}
	return cells
}

// HeaderBaseline is where the page title is drawn.
func HeaderBaseline() (x, y float64) {
	return Margin, Margin + HeaderTextSize
}

// FrameStrokeWidth converts a frame style into a stroke width in device units.
func FrameStrokeWidth(style layout.FrameStyle) float64 {
	return style.WidthDp() * frameScale
}
