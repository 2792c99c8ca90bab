package galleryaccess

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/mail"
	"strings"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
)

const (
	maxCommentLength = 2000
)

type GalleryAccessControllerConfig struct {
	Bucket           string
	GalleryService   services.GalleryServicer
	MaxUploadBytes   int64
	MediaURLs        viewmodels.MediaURLs
	PhotoService     services.PhotoServicer
	PhotosFolder     string
	S3Client         s3.S3Client
	SessionService   sessions.Session[*models.GuestPass]
	VoiceMemoService services.VoiceMemoServicer
}

type GalleryAccessController struct {
	galleryService   services.GalleryServicer
	maxUploadBytes   int64
	mediaURLs        viewmodels.MediaURLs
	photoService     services.PhotoServicer
	photosFolder     string
	sessionService   sessions.Session[*models.GuestPass]
	storeFile        func(key string, file multipart.File) error
	voiceMemoService services.VoiceMemoServicer
}

type accessRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type identityRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type commentRequest struct {
	Body string `json:"body"`
}

func NewGalleryAccessController(config GalleryAccessControllerConfig) GalleryAccessController {
	storeFile := func(key string, file multipart.File) error {
		_, err := config.S3Client.Put(config.Bucket, key, file)
		return err
	}

	return GalleryAccessController{
		galleryService:   config.GalleryService,
		maxUploadBytes:   config.MaxUploadBytes,
		mediaURLs:        config.MediaURLs,
		photoService:     config.PhotoService,
		photosFolder:     config.PhotosFolder,
		sessionService:   config.SessionService,
		storeFile:        storeFile,
		voiceMemoService: config.VoiceMemoService,
	}
}

/*
POST /api/galleries/{code}/access
*/
func (c GalleryAccessController) AccessAction(w http.ResponseWriter, r *http.Request) {
	var (
		err     error
		gallery *models.Gallery
	)

	request := accessRequest{}

	if err = viewmodels.ReadJSON(r, &request); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	code := request.Code

	if strings.TrimSpace(code) == "" {
		code = httphelpers.GetFromRequest[string](r, "code")
	}

	if gallery, err = c.galleryService.GetByCode(code); err != nil {
		if errors.Is(err, models.ErrGalleryNotFound) {
			viewmodels.WriteMessage(w, http.StatusForbidden, "That access code is not correct. Please try again.")
			return
		}

		slog.Error("error looking up gallery by code", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	pass := viewmodels.GetGuestPassFromContext(r)
	identity := pass.Identity(gallery.ID)
	identity.HasAccess = true

	if name := strings.TrimSpace(request.Name); name != "" {
		identity.Name = name
	}

	if strings.TrimSpace(request.Email) != "" {
		email, ok := normalizeEmail(request.Email)

		if !ok {
			viewmodels.WriteMessage(w, http.StatusBadRequest, "Please enter a valid email address.")
			return
		}

		identity.Email = email
	}

	pass.SetIdentity(gallery.ID, identity)

	if !c.savePass(w, r, pass) {
		return
	}

	c.writeGallery(w, r, gallery, identity)
}

/*
GET /api/galleries/{code}
*/
func (c GalleryAccessController) GetGallery(w http.ResponseWriter, r *http.Request) {
	gallery := viewmodels.GetGalleryFromContext(r)
	identity := viewmodels.GetGuestPassFromContext(r).Identity(gallery.ID)

	c.writeGallery(w, r, gallery, identity)
}

/*
PUT /api/galleries/{code}/identity
*/
func (c GalleryAccessController) UpdateIdentity(w http.ResponseWriter, r *http.Request) {
	gallery := viewmodels.GetGalleryFromContext(r)
	request := identityRequest{}

	if err := viewmodels.ReadJSON(r, &request); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	pass := viewmodels.GetGuestPassFromContext(r)
	identity := pass.Identity(gallery.ID)
	identity.Name = strings.TrimSpace(request.Name)
	identity.Email = ""

	if strings.TrimSpace(request.Email) != "" {
		email, ok := normalizeEmail(request.Email)

		if !ok {
			viewmodels.WriteMessage(w, http.StatusBadRequest, "Please enter a valid email address.")
			return
		}

		identity.Email = email
	}

	pass.SetIdentity(gallery.ID, identity)

	if !c.savePass(w, r, pass) {
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewIdentity(identity))
}

/*
PUT /api/photos/{id}/like
*/
func (c GalleryAccessController) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var (
		err   error
		liked bool
	)

	photo, identity, ok := c.getPhoto(w, r)

	if !ok {
		return
	}

	if !identity.HasEmail() {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please tell us your email address before liking photos.")
		return
	}

	if liked, err = c.photoService.ToggleLike(photo.ID, identity.Email); err != nil {
		slog.Error("error toggling like", "error", err, "photoID", photo.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.LikeToggled{
		PhotoID: photo.ID,
		Liked:   liked,
	})
}

/*
GET /api/photos/{id}/comments
*/
func (c GalleryAccessController) GetComments(w http.ResponseWriter, r *http.Request) {
	var (
		err      error
		comments []models.Comment
	)

	photo, _, ok := c.getPhoto(w, r)

	if !ok {
		return
	}

	if comments, err = c.photoService.GetComments(photo.ID); err != nil {
		slog.Error("error getting comments", "error", err, "photoID", photo.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewComments(comments))
}

/*
POST /api/photos/{id}/comments
*/
func (c GalleryAccessController) AddComment(w http.ResponseWriter, r *http.Request) {
	photo, identity, ok := c.getPhoto(w, r)

	if !ok {
		return
	}

	if !identity.HasName() || !identity.HasEmail() {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please tell us your name and email address before commenting.")
		return
	}

	request := commentRequest{}

	if err := viewmodels.ReadJSON(r, &request); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	body := strings.TrimSpace(request.Body)

	if body == "" || len(body) > maxCommentLength {
		viewmodels.WriteMessage(w, http.StatusBadRequest, fmt.Sprintf("Comments must be between 1 and %d characters.", maxCommentLength))
		return
	}

	comment := &models.Comment{
		PhotoID:    photo.ID,
		GuestName:  identity.Name,
		GuestEmail: identity.Email,
		Body:       body,
	}

	if err := c.photoService.AddComment(comment); err != nil {
		slog.Error("error adding comment", "error", err, "photoID", photo.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusCreated, viewmodels.NewComments([]models.Comment{*comment})[0])
}

/*
GET /api/galleries/{code}/voice-memos
*/
func (c GalleryAccessController) GetVoiceMemos(w http.ResponseWriter, r *http.Request) {
	gallery := viewmodels.GetGalleryFromContext(r)
	memos, err := c.voiceMemoService.GetVoiceMemos(gallery.ID)

	if err != nil {
		slog.Error("error getting voice memos", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewVoiceMemos(memos, c.mediaURLs))
}

/*
POST /api/galleries/{code}/voice-memos

Multipart form with an "audio" file and an optional "durationSeconds".
*/
func (c GalleryAccessController) UploadVoiceMemo(w http.ResponseWriter, r *http.Request) {
	var (
		err error
	)

	gallery := viewmodels.GetGalleryFromContext(r)
	identity := viewmodels.GetGuestPassFromContext(r).Identity(gallery.ID)

	if !identity.HasName() {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please tell us your name before leaving a voice message.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)

	file, header, err := r.FormFile("audio")

	if err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "An audio file is required.")
		return
	}

	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	if !strings.HasPrefix(contentType, "audio/") && !strings.HasPrefix(contentType, "video/webm") {
		viewmodels.WriteMessage(w, http.StatusUnsupportedMediaType, "Voice messages must be audio files.")
		return
	}

	memo := &models.VoiceMemo{
		GalleryID:       gallery.ID,
		GuestName:       identity.Name,
		GuestEmail:      identity.Email,
		StorageKey:      services.VoiceMemoKey(c.photosFolder, gallery.ID, header.Filename),
		ContentType:     contentType,
		DurationSeconds: max(0, httphelpers.GetFromRequest[int](r, "durationSeconds")),
	}

	if err = c.storeFile(memo.StorageKey, file); err != nil {
		slog.Error("error uploading voice memo", "error", err, "galleryID", gallery.ID, "key", memo.StorageKey)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	if err = c.voiceMemoService.CreateVoiceMemo(memo); err != nil {
		slog.Error("error saving voice memo", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusCreated, viewmodels.NewVoiceMemos([]models.VoiceMemo{*memo}, c.mediaURLs)[0])
}

func (c GalleryAccessController) writeGallery(w http.ResponseWriter, r *http.Request, gallery *models.Gallery, identity models.GuestIdentity) {
	var (
		err      error
		chapters []models.Chapter
		count    int
	)

	if chapters, err = c.galleryService.GetChapters(gallery.ID); err != nil {
		slog.Error("error getting chapters", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	if count, err = c.photoService.CountPhotos(gallery.ID, ""); err != nil {
		slog.Error("error counting photos", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	result := viewmodels.NewGallery(gallery, chapters, count)
	result.Identity = viewmodels.NewIdentity(identity)

	if gallery.CoverPhotoID != "" {
		result.CoverURL = c.mediaURLs.Thumbnail(gallery.CoverPhotoID)
	}

	viewmodels.WriteJSON(w, http.StatusOK, result)
}

func (c GalleryAccessController) getPhoto(w http.ResponseWriter, r *http.Request) (*models.Photo, models.GuestIdentity, bool) {
	id := httphelpers.GetFromRequest[string](r, "id")
	photo, err := c.photoService.GetPhoto(id)

	if err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "photo not found")
			return nil, models.GuestIdentity{}, false
		}

		slog.Error("error getting photo", "error", err, "photoID", id)
		viewmodels.WriteUnexpectedError(w)
		return nil, models.GuestIdentity{}, false
	}

	if !viewmodels.HasGalleryAccess(r, photo.GalleryID) {
		viewmodels.WriteAccessRequired(w)
		return nil, models.GuestIdentity{}, false
	}

	return photo, viewmodels.GetGuestPassFromContext(r).Identity(photo.GalleryID), true
}

func (c GalleryAccessController) savePass(w http.ResponseWriter, r *http.Request, pass *models.GuestPass) bool {
	var (
		err error
	)

	if err = c.sessionService.Set(r, pass); err != nil {
		slog.Error("error setting guest session", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return false
	}

	if err = c.sessionService.Save(w, r); err != nil {
		slog.Error("error saving guest session", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return false
	}

	return true
}

/*
normalizeEmail parses a guest supplied address, accepting forms like
"Carla <carla@example.com>", and returns the bare lower-cased address.
*/
func normalizeEmail(raw string) (string, bool) {
	address, err := mail.ParseAddress(strings.TrimSpace(raw))

	if err != nil {
		return "", false
	}

	return strings.ToLower(address.Address), true
}
