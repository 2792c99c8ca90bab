package services

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExportStorage struct {
	files   map[string]string
	objects []storedObject
	created map[string]*bytes.Buffer
	removed []string
}

func newFakeExportStorage() *fakeExportStorage {
	return &fakeExportStorage{
		files:   map[string]string{},
		created: map[string]*bytes.Buffer{},
	}
}

func (f *fakeExportStorage) open(key string) (io.ReadCloser, error) {
	content, ok := f.files[key]

	if !ok {
		return nil, errors.New("NoSuchKey")
	}

	return io.NopCloser(strings.NewReader(content)), nil
}

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error {
	return nil
}

func (f *fakeExportStorage) create(key string) (io.WriteCloser, error) {
	buffer := &bytes.Buffer{}
	f.created[key] = buffer
	return bufferCloser{Buffer: buffer}, nil
}

func (f *fakeExportStorage) list(prefix string) ([]storedObject, error) {
	result := []storedObject{}

	for _, object := range f.objects {
		if strings.HasPrefix(object.Key, prefix) {
			result = append(result, object)
		}
	}

	return result, nil
}

func (f *fakeExportStorage) remove(key string) error {
	f.removed = append(f.removed, key)
	return nil
}

type fakeExportPhotos struct {
	PhotoServicer
	photos []models.Photo
}

func (f fakeExportPhotos) GetPhotoPage(galleryID, chapterID string, offset, limit int) ([]models.Photo, bool, error) {
	end := min(offset+limit, len(f.photos))
	return f.photos[offset:end], end < len(f.photos), nil
}

type fakeExportGalleries struct {
	GalleryServicer
}

func (fakeExportGalleries) GetAll() ([]models.Gallery, error) {
	return []models.Gallery{{BaseModel: models.BaseModel{ID: "g1"}}}, nil
}

type sentTemplate struct {
	name    string
	toName  string
	toEmail string
	data    map[string]any
}

type fakeTemplateEmail struct {
	sent []sentTemplate
}

func (f *fakeTemplateEmail) SendTemplate(templateName, toName, toEmail string, data map[string]any) error {
	f.sent = append(f.sent, sentTemplate{name: templateName, toName: toName, toEmail: toEmail, data: data})
	return nil
}

func TestCreateExportAsync_ZipsPhotosAndEmailsLink(t *testing.T) {
	storage := newFakeExportStorage()
	storage.files["galleries/g1/originals/a.jpg"] = "first"
	storage.files["galleries/g1/originals/b.jpg"] = "second"

	emails := &fakeTemplateEmail{}

	service := NewExportService(ExportServiceConfig{
		BaseDownloadURL: "https://photos.example.com",
		BasePath:        "/wedding/",
		EmailService:    emails,
		ExpirationDays:  3,
		PhotoService: fakeExportPhotos{photos: []models.Photo{
			{BaseModel: models.BaseModel{ID: "p1"}, Name: "IMG_1.jpg", StorageKey: "galleries/g1/originals/a.jpg"},
			{BaseModel: models.BaseModel{ID: "p2"}, Name: "IMG_2.jpg", StorageKey: "galleries/g1/originals/missing.jpg"},
			{BaseModel: models.BaseModel{ID: "p3"}, Name: "IMG_1.jpg", StorageKey: "galleries/g1/originals/b.jpg"},
		}},
		PhotosFolder: "galleries",
	})
	service.storage = storage

	gallery := &models.Gallery{BaseModel: models.BaseModel{ID: "g1"}, Name: "Ana & Ben"}

	fileName, err := service.CreateExportAsync(gallery, "Dana", "dana@example.com")
	require.NoError(t, err)
	service.Wait()

	assert.True(t, strings.HasPrefix(fileName, "Ana--Ben-"))

	archive, ok := storage.created[ExportKey("galleries", "g1", fileName)]
	require.True(t, ok)

	reader, err := zip.NewReader(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
	require.NoError(t, err)

	contents := map[string]string{}

	for _, file := range reader.File {
		rc, err := file.Open()
		require.NoError(t, err)

		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()

		contents[file.Name] = string(b)
	}

	assert.Equal(t, map[string]string{
		"0001-IMG_1.jpg": "first",
		"0003-IMG_1.jpg": "second",
	}, contents)

	require.Len(t, emails.sent, 1)
	assert.Equal(t, models.TemplateExportReady, emails.sent[0].name)
	assert.Equal(t, "dana@example.com", emails.sent[0].toEmail)
	assert.Equal(t, "https://photos.example.com/wedding/media/exports/g1/"+fileName, emails.sent[0].data["downloadURL"])
	assert.Equal(t, 3, emails.sent[0].data["expirationDays"])
}

func TestCreateExportAsync_RequiresEmail(t *testing.T) {
	service := NewExportService(ExportServiceConfig{})
	service.storage = newFakeExportStorage()

	_, err := service.CreateExportAsync(&models.Gallery{}, "Dana", "  ")
	assert.Error(t, err)
}

func TestDownloadURL_UsesBasePath(t *testing.T) {
	service := NewExportService(ExportServiceConfig{BaseDownloadURL: "https://photos.example.com/", BasePath: "wedding"})
	assert.Equal(t, "https://photos.example.com/wedding/media/exports/g1/x.zip", service.DownloadURL("g1", "x.zip"))

	service = NewExportService(ExportServiceConfig{BaseDownloadURL: "https://photos.example.com"})
	assert.Equal(t, "https://photos.example.com/media/exports/g1/x.zip", service.DownloadURL("g1", "x.zip"))
}

func TestCleanupExpiredExports(t *testing.T) {
	now := time.Now()

	storage := newFakeExportStorage()
	storage.objects = []storedObject{
		{Key: "galleries/g1/exports/old.zip", LastModified: now.AddDate(0, 0, -10)},
		{Key: "galleries/g1/exports/fresh.zip", LastModified: now},
		{Key: "galleries/g1/exports/notes.txt", LastModified: now.AddDate(0, 0, -10)},
		{Key: "galleries/g2/exports/other.zip", LastModified: now.AddDate(0, 0, -10)},
	}

	service := NewExportService(ExportServiceConfig{
		ExpirationDays: 7,
		GalleryService: fakeExportGalleries{},
		PhotosFolder:   "galleries",
	})
	service.storage = storage

	service.cleanupExpiredExports()

	assert.Equal(t, []string{"galleries/g1/exports/old.zip"}, storage.removed)
}
