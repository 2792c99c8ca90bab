package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adampresley/adamgokit/sessions"
	internalmodels "github.com/adampresley/weddingshare/cmd/website/internal/models"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
	"github.com/stretchr/testify/assert"
)

type fakeAdminSession struct {
	sessions.Session[*internalmodels.AdminSession]

	value     *internalmodels.AdminSession
	destroyed bool
}

func (f *fakeAdminSession) Get(r *http.Request) (*internalmodels.AdminSession, error) {
	return f.value, nil
}

func (f *fakeAdminSession) Save(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (f *fakeAdminSession) Destroy(w http.ResponseWriter, r *http.Request) error {
	f.destroyed = true
	return nil
}

type fakeAdmins struct {
	services.AdminServicer
}

func (fakeAdmins) GetByID(id string) (*models.Admin, error) {
	if id == "a1" {
		return &models.Admin{BaseModel: models.BaseModel{ID: "a1"}, Email: "owner@example.com"}, nil
	}

	return nil, models.ErrAdminNotFound
}

func serveAdmin(session *fakeAdminSession) *httptest.ResponseRecorder {
	handler := newAdminMiddleware(session, fakeAdmins{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewmodels.WriteMessage(w, http.StatusOK, viewmodels.GetAdminFromContext(r).Email)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/me", nil))
	return w
}

func TestAdminMiddleware_NoSession(t *testing.T) {
	w := serveAdmin(&fakeAdminSession{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "login required")
}

func TestAdminMiddleware_MissingAdminExpiresSession(t *testing.T) {
	session := &fakeAdminSession{value: &internalmodels.AdminSession{AdminID: "gone"}}
	w := serveAdmin(session)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "session expired")
	assert.True(t, session.destroyed)
}

func TestAdminMiddleware_LoadsAdmin(t *testing.T) {
	w := serveAdmin(&fakeAdminSession{value: &internalmodels.AdminSession{AdminID: "a1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "owner@example.com")
}

func TestChain_RunsInOrder(t *testing.T) {
	order := []string{}

	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := chain(mark("a"), mark("b"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "a,b,handler", strings.Join(order, ","))
}

type fakeGuestSession struct {
	sessions.Session[*models.GuestPass]

	pass *models.GuestPass
	err  error
}

func (f *fakeGuestSession) Get(r *http.Request) (*models.GuestPass, error) {
	return f.pass, f.err
}

type fakeGalleries struct {
	services.GalleryServicer
}

func (fakeGalleries) GetByCode(code string) (*models.Gallery, error) {
	if code == "ABC123" {
		return &models.Gallery{BaseModel: models.BaseModel{ID: "g1"}, Name: "Ana and Ben"}, nil
	}

	return nil, models.ErrGalleryNotFound
}

func serveGallery(session *fakeGuestSession, target string) *httptest.ResponseRecorder {
	handler := chain(newGuestSessionMiddleware(session), newGalleryMiddleware(fakeGalleries{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewmodels.WriteMessage(w, http.StatusOK, viewmodels.GetGalleryFromContext(r).Name)
	}))

	mux := http.NewServeMux()
	mux.Handle("GET /api/galleries/{code}", handler)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestGalleryMiddleware_UnknownCode(t *testing.T) {
	w := serveGallery(&fakeGuestSession{}, "/api/galleries/NOPE")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "gallery not found")
}

func TestGalleryMiddleware_RequiresAccessCode(t *testing.T) {
	w := serveGallery(&fakeGuestSession{err: errors.New("securecookie: the value is not valid")}, "/api/galleries/ABC123")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "access code required")

	other := &models.GuestPass{}
	other.SetIdentity("g2", models.GuestIdentity{HasAccess: true})

	w = serveGallery(&fakeGuestSession{pass: other}, "/api/galleries/ABC123")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGalleryMiddleware_LoadsGallery(t *testing.T) {
	pass := &models.GuestPass{}
	pass.SetIdentity("g1", models.GuestIdentity{HasAccess: true})

	w := serveGallery(&fakeGuestSession{pass: pass}, "/api/galleries/ABC123")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana and Ben")
}
