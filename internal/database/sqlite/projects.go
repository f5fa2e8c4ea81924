package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/layout"
)

func newID() string {
	return uuid.New().String()
}

// timestamps are stored as unix nanoseconds
func stamp(t time.Time) int64 { return t.UnixNano() }

func fromStamp(n int64) time.Time { return time.Unix(0, n).UTC() }

const projectColumns = `id, name, images_per_page, sort_ascending, frame_enabled, frame_style, frame_color_hex, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner, extra ...any) (database.Project, error) {
	var (
		p                database.Project
		created, updated int64
	)
	dest := append([]any{&p.ID, &p.Name, &p.ImagesPerPage, &p.SortAscending, &p.FrameEnabled,
		&p.FrameStyle, &p.FrameColorHex, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.CreatedAt = fromStamp(created)
	p.UpdatedAt = fromStamp(updated)
	return p, nil
}

// --- Projects ---

func (s *Store) CreateProject(ctx context.Context, p *database.Project) error {
	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex,
		stamp(p.CreatedAt), stamp(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*database.Project, error) {
	p, err := scanProject(s.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]database.ProjectWithCounts, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+projectColumns+`,
		        (SELECT COUNT(*) FROM pages pg WHERE pg.project_id = projects.id),
		        (SELECT COUNT(*) FROM page_photos ph JOIN pages pg ON pg.id = ph.page_id WHERE pg.project_id = projects.id)
		 FROM projects
		 ORDER BY updated_at DESC, created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []database.ProjectWithCounts{}
	for rows.Next() {
		var pc database.ProjectWithCounts
		p, err := scanProject(rows, &pc.PageCount, &pc.PhotoCount)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		pc.Project = p
		projects = append(projects, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (s *Store) UpdateProject(ctx context.Context, p *database.Project) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, images_per_page = ?, sort_ascending = ?, frame_enabled = ?,
		        frame_style = ?, frame_color_hex = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex, stamp(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return expectRow(result, "project", p.ID)
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deletePages(ctx, tx, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := expectRow(result, "project", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project: %w", err)
	}
	return nil
}

// deletePages removes photos explicitly so a connection opened without
// foreign key enforcement leaves no orphans.
func deletePages(ctx context.Context, tx *sql.Tx, projectID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM page_photos WHERE page_id IN (SELECT id FROM pages WHERE project_id = ?)`, projectID); err != nil {
		return fmt.Errorf("delete photos: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete pages: %w", err)
	}
	return nil
}

// --- Pages ---

func (s *Store) GetPages(ctx context.Context, projectID string) ([]layout.Page, error) {
	rows, err := s.conn.QueryContext(ctx, database.PagesQuery+"?"+database.PagesOrder, projectID)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	defer rows.Close()
	return database.ScanPages(rows)
}

func (s *Store) PageProject(ctx context.Context, pageID string) (string, error) {
	var projectID string
	err := s.conn.QueryRowContext(ctx, `SELECT project_id FROM pages WHERE id = ?`, pageID).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("page %s: %w", pageID, database.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get page project: %w", err)
	}
	return projectID, nil
}

func (s *Store) PhotoProject(ctx context.Context, photoID string) (string, string, error) {
	var projectID, pageID string
	err := s.conn.QueryRowContext(ctx,
		`SELECT pg.project_id, pg.id FROM page_photos ph JOIN pages pg ON pg.id = ph.page_id WHERE ph.id = ?`, photoID).
		Scan(&projectID, &pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("photo %s: %w", photoID, database.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("get photo project: %w", err)
	}
	return projectID, pageID, nil
}

func (s *Store) ReplacePages(ctx context.Context, projectID string, pages []layout.Page) ([]layout.Page, error) {
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, stamp(time.Now()), projectID)
	if err != nil {
		return nil, fmt.Errorf("touch project: %w", err)
	}
	if err := expectRow(result, "project", projectID); err != nil {
		return nil, err
	}
	stored, err := insertPages(ctx, tx, projectID, pages)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace pages: %w", err)
	}
	return stored, nil
}

func (s *Store) ReplaceProjectLayout(ctx context.Context, p *database.Project, pages []layout.Page) ([]layout.Page, error) {
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET name = ?, images_per_page = ?, sort_ascending = ?, frame_enabled = ?,
		        frame_style = ?, frame_color_hex = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex, stamp(updatedAt), p.ID)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := expectRow(result, "project", p.ID); err != nil {
		return nil, err
	}
	stored, err := insertPages(ctx, tx, p.ID, pages)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit project layout: %w", err)
	}
	p.UpdatedAt = updatedAt
	return stored, nil
}

// insertPages replaces every page of the project inside tx and assigns
// missing IDs.
func insertPages(ctx context.Context, tx *sql.Tx, projectID string, pages []layout.Page) ([]layout.Page, error) {
	if err := deletePages(ctx, tx, projectID); err != nil {
		return nil, err
	}

	stored := make([]layout.Page, len(pages))
	for i, page := range pages {
		if page.ID == "" {
			page.ID = newID()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (id, project_id, title, page_index) VALUES (?, ?, ?, ?)`,
			page.ID, projectID, page.Title, page.PageIndex); err != nil {
			return nil, fmt.Errorf("insert page %d: %w", page.PageIndex, err)
		}
		photos := make([]layout.Photo, len(page.Photos))
		for j, ph := range page.Photos {
			if ph.ID == "" {
				ph.ID = newID()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO page_photos (id, page_id, uri, caption, position, date_taken) VALUES (?, ?, ?, ?, ?, ?)`,
				ph.ID, page.ID, ph.URI, ph.Caption, ph.Position, ph.DateTaken); err != nil {
				return nil, fmt.Errorf("insert photo on page %d: %w", page.PageIndex, err)
			}
			photos[j] = ph
		}
		page.Photos = photos
		stored[i] = page
	}
	return stored, nil
}

func (s *Store) UpdatePageTitle(ctx context.Context, pageID string, title string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE pages SET title = ? WHERE id = ?`, title, pageID)
	if err != nil {
		return fmt.Errorf("update page title: %w", err)
	}
	if err := expectRow(result, "page", pageID); err != nil {
		return err
	}
	if err := touchByPage(ctx, tx, pageID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit page title: %w", err)
	}
	return nil
}

func (s *Store) UpdatePhotoCaption(ctx context.Context, photoID string, caption string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE page_photos SET caption = ? WHERE id = ?`, caption, photoID)
	if err != nil {
		return fmt.Errorf("update photo caption: %w", err)
	}
	if err := expectRow(result, "photo", photoID); err != nil {
		return err
	}
	var pageID string
	if err := tx.QueryRowContext(ctx, `SELECT page_id FROM page_photos WHERE id = ?`, photoID).Scan(&pageID); err != nil {
		return fmt.Errorf("get photo page: %w", err)
	}
	if err := touchByPage(ctx, tx, pageID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit photo caption: %w", err)
	}
	return nil
}

func (s *Store) UpdatePhotoPositions(ctx context.Context, pageID string, photoIDs []string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM page_photos WHERE page_id = ? ORDER BY position`, pageID)
	if err != nil {
		return fmt.Errorf("list page photos: %w", err)
	}
	var current []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan photo id: %w", err)
		}
		current = append(current, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate page photos: %w", err)
	}
	if len(current) == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages WHERE id = ?`, pageID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("get page: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("page %s: %w", pageID, database.ErrNotFound)
		}
	}
	if err := database.CheckPhotoOrder(current, photoIDs); err != nil {
		return err
	}

	for i, id := range photoIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE page_photos SET position = ? WHERE id = ? AND page_id = ?`, i, id, pageID); err != nil {
			return fmt.Errorf("update photo position: %w", err)
		}
	}
	if err := touchByPage(ctx, tx, pageID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder photos: %w", err)
	}
	return nil
}

func touchByPage(ctx context.Context, tx *sql.Tx, pageID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = ? WHERE id = (SELECT project_id FROM pages WHERE id = ?)`,
		stamp(time.Now()), pageID)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

func expectRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, database.ErrNotFound)
	}
	return nil
}

// Compile-time check
var _ database.ProjectWriter = (*Store)(nil)
