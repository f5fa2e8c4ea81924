package database

import (
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-pages/internal/layout"
)

// PagesQuery selects the nested page/photo rows scanned by ScanPages. Backends
// append their own placeholder for the project ID.
const PagesQuery = `SELECT pg.id, pg.title, pg.page_index,
		ph.id, ph.uri, ph.caption, ph.position, ph.date_taken
	 FROM pages pg
	 LEFT JOIN page_photos ph ON ph.page_id = pg.id
	 WHERE pg.project_id = `

// PagesOrder is appended after the placeholder of PagesQuery.
const PagesOrder = ` ORDER BY pg.page_index, ph.position`

// ScanPages assembles rows produced by PagesQuery into pages.
func ScanPages(rows *sql.Rows) ([]layout.Page, error) {
	pages := []layout.Page{}
	for rows.Next() {
		var (
			pageID, title         string
			pageIndex             int
			photoID, uri, caption sql.NullString
			position              sql.NullInt64
			dateTaken             sql.NullInt64
		)
		if err := rows.Scan(&pageID, &title, &pageIndex, &photoID, &uri, &caption, &position, &dateTaken); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		if len(pages) == 0 || pages[len(pages)-1].ID != pageID {
			pages = append(pages, layout.Page{ID: pageID, Title: title, PageIndex: pageIndex})
		}
		if !photoID.Valid {
			continue
		}
		last := &pages[len(pages)-1]
		last.Photos = append(last.Photos, layout.Photo{
			ID:        photoID.String,
			URI:       uri.String,
			Caption:   caption.String,
			Position:  int(position.Int64),
			DateTaken: dateTaken.Int64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

// CheckPhotoOrder verifies that order is a permutation of current.
func CheckPhotoOrder(current, order []string) error {
	if len(current) != len(order) {
		return fmt.Errorf("%w: got %d photos for a page of %d", layout.ErrConsistency, len(order), len(current))
	}
	remaining := make(map[string]int, len(current))
	for _, id := range current {
		remaining[id]++
	}
	for _, id := range order {
		if remaining[id] == 0 {
			return fmt.Errorf("%w: photo %q is not on the page or listed twice", layout.ErrConsistency, id)
		}
		remaining[id]--
	}
	return nil
}
