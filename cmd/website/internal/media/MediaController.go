package media

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/getoptions"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/imagecache"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
)

/*
AccessChecker reports whether the request may read media of a gallery.
*/
type AccessChecker func(r *http.Request, galleryID string) bool

type MediaControllerConfig struct {
	AccessChecker    AccessChecker
	Bucket           string
	GalleryService   services.GalleryServicer
	MaxUploadBytes   int64
	MediaURLs        viewmodels.MediaURLs
	PhotoService     services.PhotoServicer
	PhotosFolder     string
	S3Client         s3.S3Client
	ThumbnailCache   imagecache.ImageCacher
	VoiceMemoService services.VoiceMemoServicer
}

type MediaController struct {
	accessChecker    AccessChecker
	bucket           string
	galleryService   services.GalleryServicer
	maxUploadBytes   int64
	mediaURLs        viewmodels.MediaURLs
	photoService     services.PhotoServicer
	photosFolder     string
	s3Client         s3.S3Client
	thumbnailCache   imagecache.ImageCacher
	voiceMemoService services.VoiceMemoServicer
}

type UploadResult struct {
	viewmodels.BaseViewModel

	Photos []viewmodels.Photo `json:"photos"`
	Failed []string           `json:"failed"`
}

func NewMediaController(config MediaControllerConfig) MediaController {
	if config.AccessChecker == nil {
		config.AccessChecker = viewmodels.HasGalleryAccess
	}

	return MediaController{
		accessChecker:    config.AccessChecker,
		bucket:           config.Bucket,
		galleryService:   config.GalleryService,
		maxUploadBytes:   config.MaxUploadBytes,
		mediaURLs:        config.MediaURLs,
		photoService:     config.PhotoService,
		photosFolder:     config.PhotosFolder,
		s3Client:         config.S3Client,
		thumbnailCache:   config.ThumbnailCache,
		voiceMemoService: config.VoiceMemoService,
	}
}

/*
GET /media/photos/{id}/thumbnail
*/
func (c MediaController) Thumbnail(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		img *imagecache.Image
		buf bytes.Buffer
	)

	photo, ok := c.getPhoto(w, r)

	if !ok {
		return
	}

	if img, err = c.thumbnailCache.Preload(r.Context(), photo.StorageKey); err != nil {
		if r.Context().Err() != nil {
			return
		}

		slog.Error("error loading thumbnail", "error", err, "photoID", photo.ID, "key", photo.StorageKey)
		viewmodels.WriteMessage(w, http.StatusBadGateway, "thumbnail unavailable")
		return
	}

	if err = jpeg.Encode(&buf, img.Image, &jpeg.Options{Quality: 85}); err != nil {
		slog.Error("error encoding thumbnail", "error", err, "photoID", photo.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

/*
GET /media/photos/{id}/original
*/
func (c MediaController) Original(w http.ResponseWriter, r *http.Request) {
	photo, ok := c.getPhoto(w, r)

	if !ok {
		return
	}

	disposition := "inline"

	if httphelpers.GetFromRequest[string](r, "download") != "" {
		disposition = "attachment"
	}

	c.stream(w, r, photo.StorageKey, photo.ContentType, fmt.Sprintf("%s; filename=%q", disposition, path.Base(photo.Name)))
}

/*
GET /media/voice-memos/{id}
*/
func (c MediaController) VoiceMemo(w http.ResponseWriter, r *http.Request) {
	id := httphelpers.GetFromRequest[string](r, "id")
	memo, err := c.voiceMemoService.GetVoiceMemo(id)

	if err != nil {
		viewmodels.WriteMessage(w, http.StatusNotFound, "voice memo not found")
		return
	}

	if !c.accessChecker(r, memo.GalleryID) {
		viewmodels.WriteAccessRequired(w)
		return
	}

	c.stream(w, r, memo.StorageKey, memo.ContentType, "inline")
}

/*
GET /media/exports/{galleryid}/{filename}

Export file names carry a random token, so the link itself is the
credential.
*/
func (c MediaController) Export(w http.ResponseWriter, r *http.Request) {
	galleryID := path.Base(httphelpers.GetFromRequest[string](r, "galleryid"))
	fileName := path.Base(httphelpers.GetFromRequest[string](r, "filename"))

	if !strings.HasSuffix(fileName, ".zip") || galleryID == "." || galleryID == "/" {
		viewmodels.WriteMessage(w, http.StatusNotFound, "download not found")
		return
	}

	key := services.ExportKey(c.photosFolder, galleryID, fileName)
	c.stream(w, r, key, "application/zip", fmt.Sprintf("attachment; filename=%q", fileName))
}

/*
POST /api/galleries/{code}/photos

Multipart form with one or more "photos" files.
*/
func (c MediaController) GuestUpload(w http.ResponseWriter, r *http.Request) {
	gallery := viewmodels.GetGalleryFromContext(r)

	if !gallery.AllowUploads {
		viewmodels.WriteMessage(w, http.StatusForbidden, "Uploads are turned off for this gallery.")
		return
	}

	identity := viewmodels.GetGuestPassFromContext(r).Identity(gallery.ID)

	if !identity.HasName() {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please tell us your name before uploading photos.")
		return
	}

	c.upload(w, r, gallery, httphelpers.GetFromRequest[string](r, "chapterId"), identity.Name, identity.Email)
}

/*
POST /api/admin/galleries/{id}/photos
*/
func (c MediaController) AdminUpload(w http.ResponseWriter, r *http.Request) {
	id := httphelpers.GetFromRequest[string](r, "id")
	gallery, err := c.galleryService.GetByID(id)

	if err != nil {
		if errors.Is(err, models.ErrGalleryNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "gallery not found")
			return
		}

		slog.Error("error getting gallery for upload", "error", err, "galleryID", id)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	admin := viewmodels.GetAdminFromContext(r)
	c.upload(w, r, gallery, httphelpers.GetFromRequest[string](r, "chapterId"), admin.Name, admin.Email)
}

func (c MediaController) upload(w http.ResponseWriter, r *http.Request, gallery *models.Gallery, chapterID, uploaderName, uploaderEmail string) {
	var (
		err error
	)

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)

	if err = r.ParseMultipartForm(32 << 20); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "The upload was too large or malformed.")
		return
	}

	files := r.MultipartForm.File["photos"]

	if len(files) == 0 {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please choose at least one photo.")
		return
	}

	result := UploadResult{
		Photos: []viewmodels.Photo{},
		Failed: []string{},
	}

	for _, header := range files {
		photo, err := c.storePhoto(header, gallery.ID, chapterID, uploaderName, uploaderEmail)

		if err != nil {
			slog.Error("error storing uploaded photo", "error", err, "galleryID", gallery.ID, "fileName", header.Filename)
			result.Failed = append(result.Failed, header.Filename)
			continue
		}

		result.Photos = append(result.Photos, viewmodels.NewPhoto(*photo, c.mediaURLs))
	}

	status := http.StatusCreated

	if len(result.Photos) == 0 {
		status = http.StatusBadRequest
		result.IsError = true
		result.Message = "None of the photos could be uploaded."
	}

	viewmodels.WriteJSON(w, status, result)
}

func (c MediaController) storePhoto(header *multipart.FileHeader, galleryID, chapterID, uploaderName, uploaderEmail string) (*models.Photo, error) {
	var (
		err  error
		file multipart.File
	)

	if file, err = header.Open(); err != nil {
		return nil, fmt.Errorf("error opening uploaded file: %w", err)
	}

	defer file.Close()

	contentType, err := SniffImageType(file)

	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		GalleryID:       galleryID,
		ChapterID:       chapterID,
		Name:            path.Base(header.Filename),
		StorageKey:      services.OriginalKey(c.photosFolder, galleryID, header.Filename),
		ContentType:     contentType,
		UploadedByName:  uploaderName,
		UploadedByEmail: uploaderEmail,
	}

	if _, err = c.s3Client.Put(c.bucket, photo.StorageKey, file); err != nil {
		return nil, fmt.Errorf("error uploading photo to S3: %w", err)
	}

	if err = c.photoService.CreatePhoto(photo); err != nil {
		return nil, err
	}

	return photo, nil
}

/*
SniffImageType inspects the first bytes of r and rewinds it. Only
formats the thumbnail pipeline can decode are accepted.
*/
func SniffImageType(r io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)

	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading uploaded file: %w", err)
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("error rewinding uploaded file: %w", err)
	}

	contentType := http.DetectContentType(head[:n])

	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return contentType, nil
	}

	return "", fmt.Errorf("unsupported file type %s", contentType)
}

func (c MediaController) getPhoto(w http.ResponseWriter, r *http.Request) (*models.Photo, bool) {
	id := httphelpers.GetFromRequest[string](r, "id")
	photo, err := c.photoService.GetPhoto(id)

	if err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "photo not found")
			return nil, false
		}

		slog.Error("error getting photo", "error", err, "photoID", id)
		viewmodels.WriteUnexpectedError(w)
		return nil, false
	}

	if !c.accessChecker(r, photo.GalleryID) {
		viewmodels.WriteAccessRequired(w)
		return nil, false
	}

	return photo, true
}

func (c MediaController) stream(w http.ResponseWriter, r *http.Request, key, contentType, disposition string) {
	object, err := c.s3Client.Get(
		c.bucket,
		key,
		getoptions.WithContext(r.Context()),
		getoptions.WithTimeout(time.Minute*30),
	)

	if err != nil {
		slog.Error("error getting object from S3", "error", err, "bucket", c.bucket, "key", key)
		viewmodels.WriteMessage(w, http.StatusNotFound, "file not found")
		return
	}

	defer object.Body.Close()

	if object.ContentType != "" {
		contentType = object.ContentType
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", object.Size))

	if _, err = io.Copy(w, object.Body); err != nil {
		slog.Error("error streaming object", "error", err, "key", key)
	}
}
