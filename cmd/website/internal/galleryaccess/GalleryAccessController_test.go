package galleryaccess

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	sessions.Session[*models.GuestPass]

	saved *models.GuestPass
	saves int
}

func (f *fakeSession) Set(r *http.Request, value *models.GuestPass) error {
	f.saved = value
	return nil
}

func (f *fakeSession) Save(w http.ResponseWriter, r *http.Request) error {
	f.saves++
	return nil
}

type fakeGalleryService struct {
	services.GalleryServicer
}

func (fakeGalleryService) GetByCode(code string) (*models.Gallery, error) {
	if strings.EqualFold(strings.TrimSpace(code), "ABC123") {
		return &models.Gallery{BaseModel: models.BaseModel{ID: "g1"}, Name: "Ana & Ben", Code: "ABC123", CoverPhotoID: "p1"}, nil
	}

	return nil, models.ErrGalleryNotFound
}

func (fakeGalleryService) GetChapters(galleryID string) ([]models.Chapter, error) {
	return []models.Chapter{{BaseModel: models.BaseModel{ID: "c1"}, GalleryID: galleryID, Name: "Ceremony"}}, nil
}

type fakePhotoService struct {
	services.PhotoServicer

	likes    map[string]bool
	comments []models.Comment
}

func (f *fakePhotoService) GetPhoto(photoID string) (*models.Photo, error) {
	if photoID != "p1" {
		return nil, models.ErrPhotoNotFound
	}

	return &models.Photo{BaseModel: models.BaseModel{ID: "p1"}, GalleryID: "g1"}, nil
}

func (f *fakePhotoService) CountPhotos(galleryID, chapterID string) (int, error) {
	return 42, nil
}

func (f *fakePhotoService) ToggleLike(photoID, guestEmail string) (bool, error) {
	key := photoID + "|" + guestEmail
	f.likes[key] = !f.likes[key]
	return f.likes[key], nil
}

func (f *fakePhotoService) AddComment(comment *models.Comment) error {
	comment.ID = "cm1"
	f.comments = append(f.comments, *comment)
	return nil
}

func newController(session *fakeSession, photoService *fakePhotoService) GalleryAccessController {
	return NewGalleryAccessController(GalleryAccessControllerConfig{
		GalleryService: fakeGalleryService{},
		MediaURLs:      viewmodels.MediaURLs{BasePath: "/wedding/"},
		PhotoService:   photoService,
		SessionService: session,
	})
}

func serve(handler http.HandlerFunc, pattern, method, target, body string, pass *models.GuestPass) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		handler(w, r.WithContext(viewmodels.WithGuestPass(r.Context(), pass)))
	})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestAccessAction(t *testing.T) {
	session := &fakeSession{}
	controller := newController(session, &fakePhotoService{})

	w := serve(controller.AccessAction, "POST /api/galleries/{code}/access", http.MethodPost, "/api/galleries/nope/access", `{}`, &models.GuestPass{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, session.saves)

	w = serve(controller.AccessAction, "POST /api/galleries/{code}/access", http.MethodPost, "/api/galleries/x/access",
		`{"code":"abc123","name":" Carla ","email":"Carla@Example.com"}`, &models.GuestPass{})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, session.saved)
	assert.Equal(t, 1, session.saves)

	identity := session.saved.Identity("g1")
	assert.True(t, identity.HasAccess)
	assert.Equal(t, "Carla", identity.Name)
	assert.Equal(t, "carla@example.com", identity.Email)

	gallery := viewmodels.Gallery{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gallery))
	assert.Equal(t, "Ana & Ben", gallery.Name)
	assert.Equal(t, 42, gallery.PhotoCount)
	assert.Equal(t, "/wedding/media/photos/p1/thumbnail", gallery.CoverURL)
	require.Len(t, gallery.Chapters, 1)
	assert.True(t, gallery.Identity.HasAccess)
}

func TestToggleLike(t *testing.T) {
	photoService := &fakePhotoService{likes: map[string]bool{}}
	controller := newController(&fakeSession{}, photoService)

	w := serve(controller.ToggleLike, "PUT /api/photos/{id}/like", http.MethodPut, "/api/photos/p1/like", "", &models.GuestPass{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	pass := &models.GuestPass{}
	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true})

	w = serve(controller.ToggleLike, "PUT /api/photos/{id}/like", http.MethodPut, "/api/photos/p1/like", "", pass)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true, Email: "dana@example.com"})

	w = serve(controller.ToggleLike, "PUT /api/photos/{id}/like", http.MethodPut, "/api/photos/p1/like", "", pass)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"","isError":false,"photoId":"p1","liked":true}`, w.Body.String())

	w = serve(controller.ToggleLike, "PUT /api/photos/{id}/like", http.MethodPut, "/api/photos/p1/like", "", pass)
	assert.JSONEq(t, `{"message":"","isError":false,"photoId":"p1","liked":false}`, w.Body.String())

	w = serve(controller.ToggleLike, "PUT /api/photos/{id}/like", http.MethodPut, "/api/photos/p2/like", "", pass)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddComment(t *testing.T) {
	photoService := &fakePhotoService{}
	controller := newController(&fakeSession{}, photoService)

	pass := &models.GuestPass{}
	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true, Email: "dana@example.com"})

	w := serve(controller.AddComment, "POST /api/photos/{id}/comments", http.MethodPost, "/api/photos/p1/comments", `{"body":"lovely"}`, pass)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true, Email: "dana@example.com", Name: "Dana"})

	w = serve(controller.AddComment, "POST /api/photos/{id}/comments", http.MethodPost, "/api/photos/p1/comments", `{"body":"   "}`, pass)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(controller.AddComment, "POST /api/photos/{id}/comments", http.MethodPost, "/api/photos/p1/comments", `{"body":" lovely "}`, pass)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, photoService.comments, 1)
	assert.Equal(t, "lovely", photoService.comments[0].Body)
	assert.Equal(t, "Dana", photoService.comments[0].GuestName)
	assert.Contains(t, w.Body.String(), `"guestName":"Dana"`)
}

type fakeVoiceMemoService struct {
	services.VoiceMemoServicer
	created []models.VoiceMemo
}

func (f *fakeVoiceMemoService) CreateVoiceMemo(memo *models.VoiceMemo) error {
	memo.ID = "vm1"
	f.created = append(f.created, *memo)
	return nil
}

var testGallery = &models.Gallery{BaseModel: models.BaseModel{ID: "g1"}, Name: "Ana & Ben", Code: "ABC123"}

func serveInGallery(handler http.HandlerFunc, r *http.Request, pass *models.GuestPass) *httptest.ResponseRecorder {
	ctx := viewmodels.WithGuestPass(r.Context(), pass)
	ctx = viewmodels.WithGallery(ctx, testGallery)

	w := httptest.NewRecorder()
	handler(w, r.WithContext(ctx))
	return w
}

func TestUpdateIdentity(t *testing.T) {
	session := &fakeSession{}
	controller := newController(session, &fakePhotoService{})

	pass := &models.GuestPass{}
	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true, Name: "Old", Email: "old@example.com"})

	r := httptest.NewRequest(http.MethodPut, "/api/galleries/ABC123/identity", strings.NewReader(`{"name":"Carla","email":"not an address"}`))
	w := serveInGallery(controller.UpdateIdentity, r, pass)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, session.saved)

	r = httptest.NewRequest(http.MethodPut, "/api/galleries/ABC123/identity", strings.NewReader(`{"name":" Carla ","email":"Carla M <Carla@Example.com>"}`))
	w = serveInGallery(controller.UpdateIdentity, r, pass)
	require.Equal(t, http.StatusOK, w.Code)

	identity := session.saved.Identity("g1")
	assert.True(t, identity.HasAccess)
	assert.Equal(t, "Carla", identity.Name)
	assert.Equal(t, "carla@example.com", identity.Email)

	r = httptest.NewRequest(http.MethodPut, "/api/galleries/ABC123/identity", strings.NewReader(`{"name":"Carla","email":""}`))
	w = serveInGallery(controller.UpdateIdentity, r, pass)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, session.saved.Identity("g1").Email)
}

func TestAccessAction_RejectsInvalidEmail(t *testing.T) {
	session := &fakeSession{}
	controller := newController(session, &fakePhotoService{})

	w := serve(controller.AccessAction, "POST /api/galleries/{code}/access", http.MethodPost, "/api/galleries/ABC123/access",
		`{"code":"ABC123","email":"carla at example"}`, &models.GuestPass{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, session.saves)
}

func voiceMemoRequest(t *testing.T, contentType string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="audio"; filename="toast.webm"`)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)

	_, err = part.Write([]byte("not really audio"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/galleries/ABC123/voice-memos", body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	return r
}

func TestUploadVoiceMemo(t *testing.T) {
	memos := &fakeVoiceMemoService{}
	stored := map[string]string{}

	controller := NewGalleryAccessController(GalleryAccessControllerConfig{
		GalleryService:   fakeGalleryService{},
		MaxUploadBytes:   1 << 20,
		MediaURLs:        viewmodels.MediaURLs{BasePath: "/wedding/"},
		PhotoService:     &fakePhotoService{},
		PhotosFolder:     "galleries",
		SessionService:   &fakeSession{},
		VoiceMemoService: memos,
	})

	controller.storeFile = func(key string, file multipart.File) error {
		b, err := io.ReadAll(file)
		stored[key] = string(b)
		return err
	}

	anonymous := &models.GuestPass{}
	anonymous.SetIdentity("g1", models.GuestIdentity{HasAccess: true})

	w := serveInGallery(controller.UploadVoiceMemo, voiceMemoRequest(t, "audio/webm"), anonymous)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pass := &models.GuestPass{}
	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true, Name: "Carla", Email: "carla@example.com"})

	w = serveInGallery(controller.UploadVoiceMemo, voiceMemoRequest(t, "image/png"), pass)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, stored)

	w = serveInGallery(controller.UploadVoiceMemo, voiceMemoRequest(t, "audio/webm"), pass)
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, memos.created, 1)
	memo := memos.created[0]
	assert.Equal(t, "g1", memo.GalleryID)
	assert.Equal(t, "Carla", memo.GuestName)
	assert.Equal(t, "audio/webm", memo.ContentType)
	assert.True(t, strings.HasPrefix(memo.StorageKey, "galleries/g1/voice-memos/"))
	assert.Equal(t, "not really audio", stored[memo.StorageKey])
}
