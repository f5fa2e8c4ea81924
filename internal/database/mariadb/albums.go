package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/database"
)

// albumPhotosQuery lists the primary file of every visible photo in an album.
// taken_at is converted to epoch millis in SQL so the DSN needs no parseTime.
const albumPhotosQuery = `
	SELECT p.photo_uid, f.file_name, COALESCE(p.photo_description, ''),
	       COALESCE(CAST(UNIX_TIMESTAMP(p.taken_at) * 1000 AS SIGNED), 0)
	FROM photos_albums pa
	JOIN photos p ON p.photo_uid = pa.photo_uid
	JOIN files f ON f.photo_uid = p.photo_uid AND f.file_primary = 1
	WHERE pa.album_uid = ? AND pa.hidden = 0 AND p.deleted_at IS NULL
	ORDER BY pa.` + "`order`" + `, p.taken_at, p.photo_uid`

// AlbumPhotos reads the photos of a PhotoPrism album. Paths are relative to
// the PhotoPrism originals directory.
func (p *Pool) AlbumPhotos(ctx context.Context, albumUID string) ([]database.AlbumPhoto, error) {
	var found string
	err := p.db.QueryRowContext(ctx,
		`SELECT album_uid FROM albums WHERE album_uid = ? AND deleted_at IS NULL`, albumUID).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("album %s: %w", albumUID, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, albumPhotosQuery, albumUID)
	if err != nil {
		return nil, fmt.Errorf("query album photos: %w", err)
	}
	defer rows.Close()

	var photos []database.AlbumPhoto
	for rows.Next() {
		var ap database.AlbumPhoto
		if err := rows.Scan(&ap.UID, &ap.Path, &ap.Description, &ap.TakenAt); err != nil {
			return nil, fmt.Errorf("scan album photo: %w", err)
		}
		photos = append(photos, ap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate album photos: %w", err)
	}
	return photos, nil
}

// Initialize connects to the PhotoPrism database and registers it as the album source.
func Initialize(cfg *config.PhotoPrismConfig) (*Pool, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	database.RegisterAlbumSource(func() database.AlbumSource { return pool })
	return pool, nil
}

// Compile-time check
var _ database.AlbumSource = (*Pool)(nil)
