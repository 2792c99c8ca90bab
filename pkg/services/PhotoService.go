package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
	"github.com/rfberaldo/sqlz"
)

type PhotoServicer interface {
	GetPhoto(photoID string) (*models.Photo, error)
	GetPhotoPage(galleryID, chapterID string, offset, limit int) ([]models.Photo, bool, error)
	CountPhotos(galleryID, chapterID string) (int, error)
	CreatePhoto(photo *models.Photo) error
	DeletePhoto(galleryID, photoID string) error
	ToggleLike(photoID, guestEmail string) (bool, error)
	GetComments(photoID string) ([]models.Comment, error)
	AddComment(comment *models.Comment) error
	DeleteComment(commentID string) error
}

type PhotoServiceConfig struct {
	DB *sqlz.DB
}

type PhotoService struct {
	db *sqlz.DB
}

func NewPhotoService(config PhotoServiceConfig) PhotoService {
	return PhotoService{
		db: config.DB,
	}
}

const photoColumns = `
   p.id
   , p.created_at
   , p.updated_at
   , p.deleted_at
   , p.gallery_id
   , COALESCE(p.chapter_id, '') AS chapter_id
   , p.name
   , p.storage_key
   , p.content_type
   , p.position
   , p.uploaded_by_name
   , p.uploaded_by_email
   , (SELECT COUNT(*) FROM likes AS l WHERE l.photo_id=p.id) AS like_count
   , (SELECT COUNT(*) FROM comments AS c WHERE c.photo_id=p.id AND c.deleted_at IS NULL) AS comment_count
`

func (s PhotoService) GetPhoto(photoID string) (*models.Photo, error) {
	var (
		err error
	)

	result := &models.Photo{}

	sql := `
SELECT` + photoColumns + `
FROM photos AS p
WHERE 1=1
   AND p.deleted_at IS NULL
   AND p.id=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, result, sql, photoID); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrPhotoNotFound
		}

		return nil, fmt.Errorf("error querying for photo %s: %w", photoID, err)
	}

	return result, nil
}

/*
GetPhotoPage returns up to limit photos starting at offset, ordered by
position. An empty chapterID means the whole gallery. The boolean reports
whether more photos follow this page.
*/
func (s PhotoService) GetPhotoPage(galleryID, chapterID string, offset, limit int) ([]models.Photo, bool, error) {
	var (
		err error
	)

	result := []models.Photo{}

	sql := `
SELECT` + photoColumns + `
FROM photos AS p
WHERE 1=1
   AND p.deleted_at IS NULL
   AND p.gallery_id=?
   AND (?='' OR p.chapter_id=?)
ORDER BY p.position, p.created_at, p.id
LIMIT ? OFFSET ?
`

	params := []any{galleryID, chapterID, chapterID, limit + 1, offset}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &result, sql, params...); err != nil && !sqlz.IsNotFound(err) {
		return nil, false, fmt.Errorf("error querying for photos of gallery %s at offset %d: %w", galleryID, offset, err)
	}

	if len(result) > limit {
		return result[:limit], true, nil
	}

	return result, false, nil
}

func (s PhotoService) CountPhotos(galleryID, chapterID string) (int, error) {
	var (
		err   error
		count int
	)

	sql := `
SELECT COUNT(*)
FROM photos AS p
WHERE 1=1
   AND p.deleted_at IS NULL
   AND p.gallery_id=?
   AND (?='' OR p.chapter_id=?)
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.QueryRow(ctx, &count, sql, galleryID, chapterID, chapterID); err != nil {
		return 0, fmt.Errorf("error counting photos of gallery %s: %w", galleryID, err)
	}

	return count, nil
}

func (s PhotoService) CreatePhoto(photo *models.Photo) error {
	var (
		err error
	)

	now := time.Now().UTC()

	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}

	photo.CreatedAt = now
	photo.UpdatedAt = now

	sql := `
INSERT INTO photos (
   id, created_at, updated_at, gallery_id, chapter_id, name, storage_key, content_type,
   position, uploaded_by_name, uploaded_by_email
) VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?,
   COALESCE(?, (SELECT COALESCE(MAX(position), 0) + 1 FROM photos WHERE gallery_id=?)), ?, ?)
`

	var position any

	if photo.Position > 0 {
		position = photo.Position
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err = s.db.Exec(ctx, sql,
		photo.ID, photo.CreatedAt, photo.UpdatedAt, photo.GalleryID, photo.ChapterID, photo.Name,
		photo.StorageKey, photo.ContentType, position, photo.GalleryID, photo.UploadedByName, photo.UploadedByEmail,
	)

	if err != nil {
		return fmt.Errorf("error inserting photo '%s' into gallery %s: %w", photo.Name, photo.GalleryID, err)
	}

	return nil
}

func (s PhotoService) DeletePhoto(galleryID, photoID string) error {
	sql := `
UPDATE photos SET deleted_at=? WHERE id=? AND gallery_id=? AND deleted_at IS NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	result, err := s.db.Exec(ctx, sql, time.Now().UTC(), photoID, galleryID)

	if err != nil {
		return fmt.Errorf("error deleting photo %s: %w", photoID, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return models.ErrPhotoNotFound
	}

	return nil
}

/*
ToggleLike adds the guest's like when missing and removes it otherwise.
It returns true when the photo is liked after the call.
*/
func (s PhotoService) ToggleLike(photoID, guestEmail string) (bool, error) {
	var (
		err    error
		exists bool
		like   models.Like
	)

	// First, check if the like already exists
	sql := `
SELECT
    photo_id,
    guest_email
FROM likes
WHERE 1=1
    AND photo_id = ?
    AND guest_email = ?
`

	params := []any{
		photoID,
		guestEmail,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	err = s.db.QueryRow(ctx, &like, sql, params...)
	if err != nil {
		if !sqlz.IsNotFound(err) {
			return false, fmt.Errorf("error checking if like exists for photo %s, guest %s: %w", photoID, guestEmail, err)
		}
	} else {
		exists = true
	}

	if exists {
		sql = `
DELETE FROM likes
WHERE 1=1
    AND photo_id = ?
    AND guest_email = ?
`
		if _, err = s.db.Exec(ctx, sql, params...); err != nil {
			return false, fmt.Errorf("error removing like for photo %s, guest %s: %w", photoID, guestEmail, err)
		}

		return false, nil
	}

	sql = `
INSERT INTO likes (
    photo_id,
    guest_email
) VALUES (?, ?)
`
	if _, err = s.db.Exec(ctx, sql, params...); err != nil {
		return false, fmt.Errorf("error adding like for photo %s, guest %s: %w", photoID, guestEmail, err)
	}

	return true, nil
}

func (s PhotoService) GetComments(photoID string) ([]models.Comment, error) {
	var (
		err error
	)

	result := []models.Comment{}

	sql := `
SELECT
   c.id
   , c.created_at
   , c.updated_at
   , c.deleted_at
   , c.photo_id
   , c.guest_name
   , c.guest_email
   , c.body
FROM comments AS c
WHERE 1=1
   AND c.deleted_at IS NULL
   AND c.photo_id=?
ORDER BY c.created_at
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = s.db.Query(ctx, &result, sql, photoID); err != nil && !sqlz.IsNotFound(err) {
		return result, fmt.Errorf("error querying for comments on photo %s: %w", photoID, err)
	}

	return result, nil
}

func (s PhotoService) AddComment(comment *models.Comment) error {
	now := time.Now().UTC()

	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	sql := `
INSERT INTO comments (id, created_at, updated_at, photo_id, guest_name, guest_email, body)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := s.db.Exec(ctx, sql,
		comment.ID, comment.CreatedAt, comment.UpdatedAt, comment.PhotoID,
		comment.GuestName, comment.GuestEmail, comment.Body,
	)

	if err != nil {
		return fmt.Errorf("error adding comment to photo %s: %w", comment.PhotoID, err)
	}

	return nil
}

func (s PhotoService) DeleteComment(commentID string) error {
	sql := `
UPDATE comments SET deleted_at=? WHERE id=? AND deleted_at IS NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	result, err := s.db.Exec(ctx, sql, time.Now().UTC(), commentID)

	if err != nil {
		return fmt.Errorf("error deleting comment %s: %w", commentID, err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return models.ErrCommentNotFound
	}

	return nil
}
