package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
	"github.com/rfberaldo/sqlz"
)

type GalleryServicer interface {
	GetAll() ([]models.Gallery, error)
	GetByCode(code string) (*models.Gallery, error)
	GetByID(id string) (*models.Gallery, error)
	Save(gallery *models.Gallery) error
	Delete(id string) error
	GetChapters(galleryID string) ([]models.Chapter, error)
	SaveChapter(chapter *models.Chapter) error
	DeleteChapter(galleryID, chapterID string) error
}

type GalleryServiceConfig struct {
	DB *sqlz.DB
}

type GalleryService struct {
	db *sqlz.DB
}

func NewGalleryService(config GalleryServiceConfig) GalleryService {
	return GalleryService{
		db: config.DB,
	}
}

func (s GalleryService) GetAll() ([]models.Gallery, error) {
	var (
		err       error
		galleries []models.Gallery
	)

	sql := `
SELECT
   g.id
   , g.created_at
   , g.updated_at
   , g.deleted_at
   , g.name
   , g.code
   , g.description
   , g.event_date
   , g.cover_photo_id
   , g.allow_uploads
FROM galleries AS g
WHERE 1=1
   AND g.deleted_at IS NULL
ORDER BY g.event_date DESC
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &galleries, sql); err != nil && !sqlz.IsNotFound(err) {
		return nil, fmt.Errorf("error querying for all galleries: %w", err)
	}

	return galleries, nil
}

/*
GetByCode looks a gallery up by the access code guests type in. Codes are
compared case-insensitively.
*/
func (s GalleryService) GetByCode(code string) (*models.Gallery, error) {
	var (
		err error
	)

	result := &models.Gallery{}

	sql := `
SELECT
   g.id
   , g.created_at
   , g.updated_at
   , g.deleted_at
   , g.name
   , g.code
   , g.description
   , g.event_date
   , g.cover_photo_id
   , g.allow_uploads
FROM galleries AS g
WHERE 1=1
   AND g.deleted_at IS NULL
   AND g.code=?
   `

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, result, sql, normalizeCode(code)); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrGalleryNotFound
		}

		return nil, fmt.Errorf("error querying for gallery by code: %w", err)
	}

	return result, nil
}

func (s GalleryService) GetByID(id string) (*models.Gallery, error) {
	var (
		err error
	)

	result := &models.Gallery{}

	sql := `
SELECT
   g.id
   , g.created_at
   , g.updated_at
   , g.deleted_at
   , g.name
   , g.code
   , g.description
   , g.event_date
   , g.cover_photo_id
   , g.allow_uploads
FROM galleries AS g
WHERE 1=1
   AND g.deleted_at IS NULL
   AND g.id=?
   `

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, result, sql, id); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrGalleryNotFound
		}

		return nil, fmt.Errorf("error querying for gallery %s: %w", id, err)
	}

	return result, nil
}

/*
Save inserts the gallery when it has no ID yet, otherwise updates it.
*/
func (s GalleryService) Save(gallery *models.Gallery) error {
	var (
		err error
	)

	now := time.Now().UTC()
	gallery.Code = normalizeCode(gallery.Code)
	gallery.UpdatedAt = now

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if gallery.ID == "" {
		gallery.ID = uuid.NewString()
		gallery.CreatedAt = now

		sql := `
INSERT INTO galleries (
   id, created_at, updated_at, name, code, description, event_date, cover_photo_id, allow_uploads
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

		_, err = s.db.Exec(ctx, sql,
			gallery.ID, gallery.CreatedAt, gallery.UpdatedAt, gallery.Name, gallery.Code,
			gallery.Description, gallery.EventDate, gallery.CoverPhotoID, gallery.AllowUploads,
		)

		if err != nil {
			return fmt.Errorf("error inserting gallery '%s': %w", gallery.Name, err)
		}

		return nil
	}

	sql := `
UPDATE galleries SET
   updated_at=?
   , name=?
   , code=?
   , description=?
   , event_date=?
   , cover_photo_id=?
   , allow_uploads=?
WHERE 1=1
   AND id=?
   AND deleted_at IS NULL
`

	_, err = s.db.Exec(ctx, sql,
		gallery.UpdatedAt, gallery.Name, gallery.Code, gallery.Description,
		gallery.EventDate, gallery.CoverPhotoID, gallery.AllowUploads, gallery.ID,
	)

	if err != nil {
		return fmt.Errorf("error updating gallery %s: %w", gallery.ID, err)
	}

	return nil
}

func (s GalleryService) Delete(id string) error {
	sql := `
UPDATE galleries SET deleted_at=? WHERE id=? AND deleted_at IS NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err := s.db.Exec(ctx, sql, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("error deleting gallery %s: %w", id, err)
	}

	return nil
}

func (s GalleryService) GetChapters(galleryID string) ([]models.Chapter, error) {
	var (
		err error
	)

	result := []models.Chapter{}

	sql := `
SELECT
   c.id
   , c.created_at
   , c.updated_at
   , c.deleted_at
   , c.gallery_id
   , c.name
   , c.position
FROM chapters AS c
WHERE 1=1
   AND c.deleted_at IS NULL
   AND c.gallery_id=?
ORDER BY c.position, c.name
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &result, sql, galleryID); err != nil && !sqlz.IsNotFound(err) {
		return result, fmt.Errorf("error querying for chapters of gallery %s: %w", galleryID, err)
	}

	return result, nil
}

func (s GalleryService) SaveChapter(chapter *models.Chapter) error {
	var (
		err error
	)

	now := time.Now().UTC()
	chapter.UpdatedAt = now

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if chapter.ID == "" {
		chapter.ID = uuid.NewString()
		chapter.CreatedAt = now

		sql := `
INSERT INTO chapters (id, created_at, updated_at, gallery_id, name, position)
VALUES (?, ?, ?, ?, ?, ?)
`

		if _, err = s.db.Exec(ctx, sql, chapter.ID, chapter.CreatedAt, chapter.UpdatedAt, chapter.GalleryID, chapter.Name, chapter.Position); err != nil {
			return fmt.Errorf("error inserting chapter '%s': %w", chapter.Name, err)
		}

		return nil
	}

	sql := `
UPDATE chapters SET updated_at=?, name=?, position=?
WHERE id=? AND gallery_id=? AND deleted_at IS NULL
`

	if _, err = s.db.Exec(ctx, sql, chapter.UpdatedAt, chapter.Name, chapter.Position, chapter.ID, chapter.GalleryID); err != nil {
		return fmt.Errorf("error updating chapter %s: %w", chapter.ID, err)
	}

	return nil
}

func (s GalleryService) DeleteChapter(galleryID, chapterID string) error {
	sql := `
UPDATE chapters SET deleted_at=? WHERE id=? AND gallery_id=? AND deleted_at IS NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err := s.db.Exec(ctx, sql, time.Now().UTC(), chapterID, galleryID); err != nil {
		return fmt.Errorf("error deleting chapter %s: %w", chapterID, err)
	}

	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
