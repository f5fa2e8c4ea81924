package postgres

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

// ProjectRepository provides PostgreSQL-backed project storage
type ProjectRepository struct {
	pool *Pool
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(pool *Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func newID() string {
	return uuid.New().String()
}

// --- Projects ---

func (r *ProjectRepository) CreateProject(ctx context.Context, p *database.Project) error {
	if p.ID == "" {
		p.ID = newID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, name, images_per_page, sort_ascending, frame_enabled, frame_style, frame_color_hex, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*database.Project, error) {
	var p database.Project
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, images_per_page, sort_ascending, frame_enabled, frame_style, frame_color_hex, created_at, updated_at
		 FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.ImagesPerPage, &p.SortAscending, &p.FrameEnabled, &p.FrameStyle, &p.FrameColorHex, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepository) ListProjects(ctx context.Context) ([]database.ProjectWithCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.images_per_page, p.sort_ascending, p.frame_enabled, p.frame_style, p.frame_color_hex,
		        p.created_at, p.updated_at,
		        (SELECT COUNT(*) FROM pages pg WHERE pg.project_id = p.id),
		        (SELECT COUNT(*) FROM page_photos ph JOIN pages pg ON pg.id = ph.page_id WHERE pg.project_id = p.id)
		 FROM projects p
		 ORDER BY p.updated_at DESC, p.created_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []database.ProjectWithCounts{}
	for rows.Next() {
		var p database.ProjectWithCounts
		if err := rows.Scan(&p.ID, &p.Name, &p.ImagesPerPage, &p.SortAscending, &p.FrameEnabled, &p.FrameStyle, &p.FrameColorHex,
			&p.CreatedAt, &p.UpdatedAt, &p.PageCount, &p.PhotoCount); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) UpdateProject(ctx context.Context, p *database.Project) error {
	p.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx,
		`UPDATE projects SET name = $1, images_per_page = $2, sort_ascending = $3, frame_enabled = $4,
		        frame_style = $5, frame_color_hex = $6, updated_at = $7
		 WHERE id = $8`,
		p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return expectRow(result, "project", p.ID)
}

func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectRow(result, "project", id)
}

// --- Pages ---

func (r *ProjectRepository) GetPages(ctx context.Context, projectID string) ([]layout.Page, error) {
	rows, err := r.pool.Query(ctx, database.PagesQuery+"$1"+database.PagesOrder, projectID)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	defer rows.Close()
	return database.ScanPages(rows)
}

func (r *ProjectRepository) PageProject(ctx context.Context, pageID string) (string, error) {
	var projectID string
	err := r.pool.QueryRow(ctx, `SELECT project_id FROM pages WHERE id = $1`, pageID).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("page %s: %w", pageID, database.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get page project: %w", err)
	}
	return projectID, nil
}

func (r *ProjectRepository) PhotoProject(ctx context.Context, photoID string) (string, string, error) {
	var projectID, pageID string
	err := r.pool.QueryRow(ctx,
		`SELECT pg.project_id, pg.id FROM page_photos ph JOIN pages pg ON pg.id = ph.page_id WHERE ph.id = $1`, photoID).
		Scan(&projectID, &pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("photo %s: %w", photoID, database.ErrNotFound)
	}
	if err != nil {
		return "", "", fmt.Errorf("get photo project: %w", err)
	}
	return projectID, pageID, nil
}

func (r *ProjectRepository) ReplacePages(ctx context.Context, projectID string, pages []layout.Page) ([]layout.Page, error) {
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stored, err := replacePagesTx(ctx, tx, projectID, pages)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace pages: %w", err)
	}
	return stored, nil
}

func (r *ProjectRepository) ReplaceProjectLayout(ctx context.Context, p *database.Project, pages []layout.Page) ([]layout.Page, error) {
	if err := layout.Validate(pages); err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	updatedAt := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET name = $1, images_per_page = $2, sort_ascending = $3, frame_enabled = $4,
		        frame_style = $5, frame_color_hex = $6, updated_at = $7
		 WHERE id = $8`,
		p.Name, p.ImagesPerPage, p.SortAscending, p.FrameEnabled, p.FrameStyle, p.FrameColorHex, updatedAt, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if err := expectRow(result, "project", p.ID); err != nil {
		return nil, err
	}
	stored, err := replacePagesTx(ctx, tx, p.ID, pages)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit project layout: %w", err)
	}
	p.UpdatedAt = updatedAt
	return stored, nil
}

// replacePagesTx swaps all pages of a project inside tx and assigns missing IDs.
func replacePagesTx(ctx context.Context, tx *sql.Tx, projectID string, pages []layout.Page) ([]layout.Page, error) {
	// Lock the project row so concurrent replacements serialize.
	var locked string
	err := tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE project_id = $1`, projectID); err != nil {
		return nil, fmt.Errorf("delete pages: %w", err)
	}

	stored := make([]layout.Page, len(pages))
	for i, page := range pages {
		if page.ID == "" {
			page.ID = newID()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (id, project_id, title, page_index) VALUES ($1, $2, $3, $4)`,
			page.ID, projectID, page.Title, page.PageIndex); err != nil {
			return nil, fmt.Errorf("insert page %d: %w", page.PageIndex, err)
		}
		photos := make([]layout.Photo, len(page.Photos))
		for j, ph := range page.Photos {
			if ph.ID == "" {
				ph.ID = newID()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO page_photos (id, page_id, uri, caption, position, date_taken) VALUES ($1, $2, $3, $4, $5, $6)`,
				ph.ID, page.ID, ph.URI, ph.Caption, ph.Position, ph.DateTaken); err != nil {
				return nil, fmt.Errorf("insert photo on page %d: %w", page.PageIndex, err)
			}
			photos[j] = ph
		}
		page.Photos = photos
		stored[i] = page
	}

	if _, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = $1 WHERE id = $2`, time.Now(), projectID); err != nil {
		return nil, fmt.Errorf("touch project: %w", err)
	}
	return stored, nil
}

func (r *ProjectRepository) UpdatePageTitle(ctx context.Context, pageID string, title string) error {
	result, err := r.pool.Exec(ctx, `UPDATE pages SET title = $1 WHERE id = $2`, title, pageID)
	if err != nil {
		return fmt.Errorf("update page title: %w", err)
	}
	if err := expectRow(result, "page", pageID); err != nil {
		return err
	}
	return r.touchByPage(ctx, pageID)
}

func (r *ProjectRepository) UpdatePhotoCaption(ctx context.Context, photoID string, caption string) error {
	result, err := r.pool.Exec(ctx, `UPDATE page_photos SET caption = $1 WHERE id = $2`, caption, photoID)
	if err != nil {
		return fmt.Errorf("update photo caption: %w", err)
	}
	if err := expectRow(result, "photo", photoID); err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE projects SET updated_at = $1
		 WHERE id = (SELECT pg.project_id FROM page_photos ph JOIN pages pg ON pg.id = ph.page_id WHERE ph.id = $2)`,
		time.Now(), photoID)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) UpdatePhotoPositions(ctx context.Context, pageID string, photoIDs []string) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var found string
	err = tx.QueryRowContext(ctx, `SELECT id FROM pages WHERE id = $1 FOR UPDATE`, pageID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("page %s: %w", pageID, database.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock page: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM page_photos WHERE page_id = $1 ORDER BY position`, pageID)
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
	if err := database.CheckPhotoOrder(current, photoIDs); err != nil {
		return err
	}

	for i, id := range photoIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE page_photos SET position = $1 WHERE id = $2 AND page_id = $3`, i, id, pageID); err != nil {
			return fmt.Errorf("update photo position: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = $1 WHERE id = (SELECT project_id FROM pages WHERE id = $2)`,
		time.Now(), pageID); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder photos: %w", err)
	}
	return nil
}

func (r *ProjectRepository) touchByPage(ctx context.Context, pageID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE projects SET updated_at = $1 WHERE id = (SELECT project_id FROM pages WHERE id = $2)`,
		time.Now(), pageID)
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
var _ database.ProjectWriter = (*ProjectRepository)(nil)
