package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
	"github.com/rfberaldo/sqlz"
)

type VoiceMemoServicer interface {
	GetVoiceMemo(id string) (*models.VoiceMemo, error)
	GetVoiceMemos(galleryID string) ([]models.VoiceMemo, error)
	CreateVoiceMemo(memo *models.VoiceMemo) error
}

type VoiceMemoServiceConfig struct {
	DB *sqlz.DB
}

type VoiceMemoService struct {
	db *sqlz.DB
}

func NewVoiceMemoService(config VoiceMemoServiceConfig) VoiceMemoService {
	return VoiceMemoService{
		db: config.DB,
	}
}

const voiceMemoColumns = `
   v.id
   , v.created_at
   , v.updated_at
   , v.deleted_at
   , v.gallery_id
   , v.guest_name
   , v.guest_email
   , v.storage_key
   , v.content_type
   , v.duration_seconds
`

func (s VoiceMemoService) GetVoiceMemo(id string) (*models.VoiceMemo, error) {
	result := &models.VoiceMemo{}

	sql := `
SELECT` + voiceMemoColumns + `
FROM voice_memos AS v
WHERE 1=1
   AND v.deleted_at IS NULL
   AND v.id=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.QueryRow(ctx, result, sql, id); err != nil {
		return nil, fmt.Errorf("error querying for voice memo %s: %w", id, err)
	}

	return result, nil
}

func (s VoiceMemoService) GetVoiceMemos(galleryID string) ([]models.VoiceMemo, error) {
	result := []models.VoiceMemo{}

	sql := `
SELECT` + voiceMemoColumns + `
FROM voice_memos AS v
WHERE 1=1
   AND v.deleted_at IS NULL
   AND v.gallery_id=?
ORDER BY v.created_at DESC
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.Query(ctx, &result, sql, galleryID); err != nil && !sqlz.IsNotFound(err) {
		return result, fmt.Errorf("error querying for voice memos of gallery %s: %w", galleryID, err)
	}

	return result, nil
}

func (s VoiceMemoService) CreateVoiceMemo(memo *models.VoiceMemo) error {
	now := time.Now().UTC()

	if memo.ID == "" {
		memo.ID = uuid.NewString()
	}

	memo.CreatedAt = now
	memo.UpdatedAt = now

	sql := `
INSERT INTO voice_memos (
   id, created_at, updated_at, gallery_id, guest_name, guest_email, storage_key, content_type, duration_seconds
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := s.db.Exec(ctx, sql,
		memo.ID, memo.CreatedAt, memo.UpdatedAt, memo.GalleryID, memo.GuestName,
		memo.GuestEmail, memo.StorageKey, memo.ContentType, memo.DurationSeconds,
	)

	if err != nil {
		return fmt.Errorf("error inserting voice memo for gallery %s: %w", memo.GalleryID, err)
	}

	return nil
}
