package render

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// ValidationWarning describes a layout issue found on a page.
type ValidationWarning struct {
	PageNumber int
	SlotIndex  int // -1 for the page header
	Message    string
}

func (w ValidationWarning) String() string {
	if w.SlotIndex < 0 {
		return fmt.Sprintf("Layout: page %d header: %s", w.PageNumber, w.Message)
	}
	return fmt.Sprintf("Layout: page %d slot %d: %s", w.PageNumber, w.SlotIndex, w.Message)
}

// validatePage checks that the computed cells stay inside the printable area
// and that header and captions fit their width. Text is not clipped when
// drawn, so overflow only produces a warning.
func validatePage(ff *faces, page layout.Page, geom PageGeometry, cells []CellLayout) []ValidationWarning {
	var warnings []ValidationWarning
	const eps = 0.01
	pageNumber := page.PageIndex + 1

	if hasText(page.Title) {
		if w := textWidth(ff.header, page.Title); w > geom.AvailableWidth+eps {
			warnings = append(warnings, ValidationWarning{
				PageNumber: pageNumber,
				SlotIndex:  -1,
				Message:    fmt.Sprintf("title width (%.0f) exceeds available width (%.0f)", w, geom.AvailableWidth),
			})
		}
	}

	for i, cell := range cells {
		if cell.Cell.X < Margin-eps || cell.Cell.X+cell.Cell.W > PageW-Margin+eps {
			warnings = append(warnings, ValidationWarning{
				PageNumber: pageNumber,
				SlotIndex:  i,
				Message:    fmt.Sprintf("cell x range (%.2f..%.2f) leaves the margins", cell.Cell.X, cell.Cell.X+cell.Cell.W),
			})
		}
		if cell.Cell.Y < geom.GridTop-eps || cell.Cell.Bottom() > PageH-Margin+eps {
			warnings = append(warnings, ValidationWarning{
				PageNumber: pageNumber,
				SlotIndex:  i,
				Message:    fmt.Sprintf("cell y range (%.2f..%.2f) leaves the grid", cell.Cell.Y, cell.Cell.Bottom()),
			})
		}
		if cell.Image.H <= 0 {
			warnings = append(warnings, ValidationWarning{
				PageNumber: pageNumber,
				SlotIndex:  i,
				Message:    "no room left for the image",
			})
		}
		if cell.HasCaption {
			caption := page.Photos[cell.Index].Caption
			if w := textWidth(ff.caption, caption); w > cell.Cell.W+eps {
				warnings = append(warnings, ValidationWarning{
					PageNumber: pageNumber,
					SlotIndex:  i,
					Message:    fmt.Sprintf("caption width (%.0f) exceeds cell width (%.0f)", w, cell.Cell.W),
				})
			}
		}
	}
	return warnings
}

func textWidth(face font.Face, s string) float64 {
	adv := font.MeasureString(face, norm.NFC.String(s))
	return float64(adv) / 64
}
