package services

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/adampresley/adamgokit/s3/putoptions"
	"github.com/adampresley/weddingshare/pkg/basepath"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
)

type ExportServiceConfig struct {
	BaseDownloadURL string
	BasePath        string
	Bucket          string
	EmailService    EmailServicer
	ExpirationDays  int
	GalleryService  GalleryServicer
	PhotoService    PhotoServicer
	PhotosFolder    string
	S3Client        s3.S3Client
}

type ExportServicer interface {
	CreateExportAsync(gallery *models.Gallery, toName, toEmail string) (string, error)
	StartCleanupRoutine(interval time.Duration)
	StopCleanupRoutine()
	Wait()
}

type ExportService struct {
	config        ExportServiceConfig
	storage       exportStorage
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupWg     sync.WaitGroup
	jobsWg        sync.WaitGroup
}

const exportPageSize = 100

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func NewExportService(config ExportServiceConfig) *ExportService {
	if config.ExpirationDays <= 0 {
		config.ExpirationDays = 7
	}

	return &ExportService{
		config:  config,
		storage: s3ExportStorage{client: config.S3Client, bucket: config.Bucket},
	}
}

/*
CreateExportAsync starts zipping every original in the gallery into object
storage and returns the export's file name. The recipient is emailed a
download link with the export-ready template once the upload finishes.
*/
func (s *ExportService) CreateExportAsync(gallery *models.Gallery, toName, toEmail string) (string, error) {
	if strings.TrimSpace(toEmail) == "" {
		return "", fmt.Errorf("an email address is required to send the export link")
	}

	fileName := ExportFileName(gallery.Name, uuid.NewString())
	zipKey := ExportKey(s.config.PhotosFolder, gallery.ID, fileName)

	s.jobsWg.Add(1)

	go func() {
		defer s.jobsWg.Done()
		s.processExport(zipKey, fileName, gallery, toName, toEmail)
	}()

	return fileName, nil
}

func (s *ExportService) Wait() {
	s.jobsWg.Wait()
}

func (s *ExportService) DownloadURL(galleryID, fileName string) string {
	return basepath.URL(s.config.BaseDownloadURL, s.config.BasePath, path.Join("/media/exports", galleryID, fileName))
}

func (s *ExportService) processExport(zipKey, fileName string, gallery *models.Gallery, toName, toEmail string) {
	var (
		err    error
		photos []models.Photo
	)

	l := slog.With("galleryID", gallery.ID, "zipKey", zipKey)
	l.Info("starting export")

	if photos, err = s.allPhotos(gallery.ID); err != nil {
		l.Error("error listing gallery photos", "error", err)
		return
	}

	addFile := func(zipWriter *zip.Writer, index int, photo models.Photo) error {
		src, err := s.storage.open(photo.StorageKey)

		if err != nil {
			return fmt.Errorf("failed to get source file from '%s' S3: %w", photo.StorageKey, err)
		}

		defer src.Close()

		entryName := ZipEntryName(index, photo)
		dest, err := zipWriter.Create(entryName)

		if err != nil {
			return fmt.Errorf("failed to create file '%s' in zip: %w", entryName, err)
		}

		if _, err := io.Copy(dest, src); err != nil {
			return fmt.Errorf("failed to copy file '%s' to zip: %w", entryName, err)
		}

		return nil
	}

	stream, err := s.storage.create(zipKey)

	if err != nil {
		l.Error("failed to setup s3 stream", "error", err)
		return
	}

	zipWriter := zip.NewWriter(stream)

	for index, photo := range photos {
		if err = addFile(zipWriter, index, photo); err != nil {
			l.Error("failed to add photo to export", "error", err, "photoID", photo.ID)
			continue
		}
	}

	if err = zipWriter.Close(); err != nil {
		l.Error("failed to close zip writer", "error", err)
		_ = stream.Close()
		return
	}

	if err = stream.Close(); err != nil {
		l.Error("failed to finish s3 upload", "error", err)
		return
	}

	downloadURL := s.DownloadURL(gallery.ID, fileName)

	err = s.config.EmailService.SendTemplate(models.TemplateExportReady, toName, toEmail, map[string]any{
		"downloadURL":    downloadURL,
		"galleryName":    gallery.Name,
		"photoCount":     len(photos),
		"expirationDays": s.config.ExpirationDays,
	})

	if err != nil {
		l.Error("failed to send export email", "error", err, "email", toEmail)
		return
	}

	l.Info("export completed", "downloadURL", downloadURL, "photos", len(photos))
}

func (s *ExportService) allPhotos(galleryID string) ([]models.Photo, error) {
	var (
		err     error
		page    []models.Photo
		hasMore = true
	)

	result := []models.Photo{}

	for hasMore {
		if page, hasMore, err = s.config.PhotoService.GetPhotoPage(galleryID, "", len(result), exportPageSize); err != nil {
			return nil, err
		}

		result = append(result, page...)
	}

	return result, nil
}

func (s *ExportService) StartCleanupRoutine(interval time.Duration) {
	s.stopCleanup = make(chan struct{})
	s.cleanupTicker = time.NewTicker(interval)

	s.cleanupWg.Add(1)

	go func() {
		defer s.cleanupWg.Done()

		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupExpiredExports()
			case <-s.stopCleanup:
				s.cleanupTicker.Stop()
				return
			}
		}
	}()

	slog.Info("export cleanup routine started", "interval", interval)
}

func (s *ExportService) StopCleanupRoutine() {
	if s.cleanupTicker != nil {
		close(s.stopCleanup)
		s.cleanupWg.Wait()
		slog.Info("export cleanup routine stopped")
	}
}

func (s *ExportService) cleanupExpiredExports() {
	var (
		err       error
		galleries []models.Gallery
		removed   int
	)

	l := slog.With("function", "cleanupExpiredExports")
	l.Info("starting cleanup of expired exports")

	cutoffTime := time.Now().AddDate(0, 0, -s.config.ExpirationDays)

	if galleries, err = s.config.GalleryService.GetAll(); err != nil {
		l.Error("error retrieving galleries from database", "error", err)
		return
	}

	for _, gallery := range galleries {
		prefix := ExportsPrefix(s.config.PhotosFolder, gallery.ID)
		objects, err := s.storage.list(prefix)

		if err != nil {
			l.Error("failed to list exports", "error", err, "path", prefix)
			continue
		}

		for _, file := range objects {
			if !IsExpiredExport(file.Key, file.LastModified, cutoffTime) {
				continue
			}

			l.Info("removing expired export", "path", file.Key, "modTime", file.LastModified)

			if err := s.storage.remove(file.Key); err != nil {
				l.Error("failed to remove expired export", "error", err, "path", file.Key)
				continue
			}

			removed++
		}
	}

	l.Info("completed cleanup of expired exports", "removed", removed)
}

func ExportFileName(galleryName, token string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ReplaceAll(galleryName, " ", "-"), ""), "-.")

	if name == "" {
		name = "gallery"
	}

	return fmt.Sprintf("%s-%s.zip", name, token)
}

/*
ZipEntryName prefixes the photo's name with its position in the export so
two uploads called IMG_0001.jpg do not collide.
*/
func ZipEntryName(index int, photo models.Photo) string {
	name := path.Base(photo.Name)

	if name == "." || name == "/" || name == "" {
		name = path.Base(photo.StorageKey)
	}

	return fmt.Sprintf("%04d-%s", index+1, name)
}

func IsExpiredExport(key string, lastModified, cutoff time.Time) bool {
	return strings.HasSuffix(strings.ToLower(key), ".zip") && lastModified.Before(cutoff)
}

/*
exportStorage is the slice of object storage an export reads and writes.
Closing the writer returned by create completes the upload.
*/
type exportStorage interface {
	open(key string) (io.ReadCloser, error)
	create(key string) (io.WriteCloser, error)
	list(prefix string) ([]storedObject, error)
	remove(key string) error
}

type storedObject struct {
	Key          string
	LastModified time.Time
}

type s3ExportStorage struct {
	client s3.S3Client
	bucket string
}

func (st s3ExportStorage) open(key string) (io.ReadCloser, error) {
	object, err := st.client.Get(st.bucket, key)

	if err != nil {
		return nil, err
	}

	return object.Body, nil
}

func (st s3ExportStorage) create(key string) (io.WriteCloser, error) {
	stream, err := st.client.PutStream(st.bucket, key, putoptions.WithContentType("application/zip"))

	if err != nil {
		return nil, err
	}

	return &s3Upload{
		WriteCloser: stream.Writer,
		wait: func() error {
			_, err := stream.Wait()
			return err
		},
	}, nil
}

func (st s3ExportStorage) list(prefix string) ([]storedObject, error) {
	response, err := st.client.List(st.bucket, prefix, listoptions.WithGetAll())

	if err != nil {
		return nil, err
	}

	result := make([]storedObject, 0, len(response.Objects))

	for _, object := range response.Objects {
		result = append(result, storedObject{Key: object.Key, LastModified: object.LastModified})
	}

	return result, nil
}

func (st s3ExportStorage) remove(key string) error {
	_, err := st.client.Delete(st.bucket, []string{key})
	return err
}

// s3Upload closes the stream writer and then waits for the upload.
type s3Upload struct {
	io.WriteCloser
	wait func() error
}

func (u *s3Upload) Close() error {
	if err := u.WriteCloser.Close(); err != nil {
		return fmt.Errorf("error closing s3 stream writer: %w", err)
	}

	if err := u.wait(); err != nil {
		return fmt.Errorf("error waiting for s3 stream: %w", err)
	}

	return nil
}
