package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registerSqliteBinds sync.Once

func newTestDB(t *testing.T) *sqlz.DB {
	t.Helper()

	registerSqliteBinds.Do(func() {
		binds.Register("sqlite", binds.BindByDriver("sqlite3"))
	})

	db, err := sqlz.Connect("sqlite", "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join("..", "..", "cmd", "website", "sql-migrations", "commit-001-initial.sql"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err = db.Exec(ctx, string(script))
	require.NoError(t, err)

	return db
}

func seedGallery(t *testing.T, db *sqlz.DB, photos int) (*models.Gallery, PhotoService) {
	t.Helper()

	galleryService := NewGalleryService(GalleryServiceConfig{DB: db})
	photoService := NewPhotoService(PhotoServiceConfig{DB: db})

	gallery := &models.Gallery{Name: "Ana & Ben", Code: "abcd", EventDate: time.Now()}
	require.NoError(t, galleryService.Save(gallery))

	for i := range photos {
		require.NoError(t, photoService.CreatePhoto(&models.Photo{
			GalleryID:  gallery.ID,
			Name:       fmt.Sprintf("IMG_%d.jpg", i),
			StorageKey: fmt.Sprintf("galleries/%s/originals/%d.jpg", gallery.ID, i),
		}))
	}

	return gallery, photoService
}

func TestGetPhotoPage_ReportsHasMore(t *testing.T) {
	db := newTestDB(t)
	gallery, photoService := seedGallery(t, db, 5)

	page, hasMore, err := photoService.GetPhotoPage(gallery.ID, "", 0, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, hasMore)
	assert.Equal(t, "IMG_0.jpg", page[0].Name)

	page, hasMore, err = photoService.GetPhotoPage(gallery.ID, "", 4, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, hasMore)
	assert.Equal(t, "IMG_4.jpg", page[0].Name)

	page, hasMore, err = photoService.GetPhotoPage(gallery.ID, "", 0, 5)
	require.NoError(t, err)
	assert.Len(t, page, 5)
	assert.False(t, hasMore, "a page that ends exactly at the last photo has no more")

	page, hasMore, err = photoService.GetPhotoPage(gallery.ID, "", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.False(t, hasMore)
}

func TestGetPhotoPage_SkipsDeletedPhotos(t *testing.T) {
	db := newTestDB(t)
	gallery, photoService := seedGallery(t, db, 3)

	page, _, err := photoService.GetPhotoPage(gallery.ID, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)

	require.NoError(t, photoService.DeletePhoto(gallery.ID, page[1].ID))
	assert.ErrorIs(t, photoService.DeletePhoto(gallery.ID, page[1].ID), models.ErrPhotoNotFound)

	page, hasMore, err := photoService.GetPhotoPage(gallery.ID, "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.False(t, hasMore)

	count, err := photoService.CountPhotos(gallery.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestToggleLike(t *testing.T) {
	db := newTestDB(t)
	gallery, photoService := seedGallery(t, db, 1)

	page, _, err := photoService.GetPhotoPage(gallery.ID, "", 0, 1)
	require.NoError(t, err)
	photoID := page[0].ID

	liked, err := photoService.ToggleLike(photoID, "carla@example.com")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = photoService.ToggleLike(photoID, "dev@example.com")
	require.NoError(t, err)
	assert.True(t, liked)

	photo, err := photoService.GetPhoto(photoID)
	require.NoError(t, err)
	assert.Equal(t, 2, photo.LikeCount)

	liked, err = photoService.ToggleLike(photoID, "carla@example.com")
	require.NoError(t, err)
	assert.False(t, liked)

	photo, err = photoService.GetPhoto(photoID)
	require.NoError(t, err)
	assert.Equal(t, 1, photo.LikeCount)
}

func TestComments(t *testing.T) {
	db := newTestDB(t)
	gallery, photoService := seedGallery(t, db, 1)

	page, _, err := photoService.GetPhotoPage(gallery.ID, "", 0, 1)
	require.NoError(t, err)
	photoID := page[0].ID

	comment := &models.Comment{PhotoID: photoID, GuestName: "Carla", GuestEmail: "carla@example.com", Body: "Gorgeous"}
	require.NoError(t, photoService.AddComment(comment))

	comments, err := photoService.GetComments(photoID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Gorgeous", comments[0].Body)

	require.NoError(t, photoService.DeleteComment(comment.ID))
	assert.ErrorIs(t, photoService.DeleteComment(comment.ID), models.ErrCommentNotFound)

	comments, err = photoService.GetComments(photoID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
