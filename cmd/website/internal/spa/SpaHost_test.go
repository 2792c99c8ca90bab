package spa

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":          {Data: []byte(`<html><head><script type="module" src="/assets/app.js"></script></head><body><div id="root"></div></body></html>`)},
		"assets/app.js":       {Data: []byte("console.log('hi')")},
		"favicon.svg":         {Data: []byte("<svg></svg>")},
		"images/hero/top.jpg": {Data: []byte{0xff, 0xd8, 0xff}},
	}
}

func request(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestSpaHost_UnderBasePath(t *testing.T) {
	host, err := NewSpaHost(SpaHostConfig{BasePath: "/wedding", FS: testFS()})
	require.NoError(t, err)

	w := request(host, http.MethodGet, "/wedding/assets/app.js")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log('hi')", w.Body.String())
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")

	w = request(host, http.MethodGet, "/wedding/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `src="/wedding/assets/app.js"`)
	assert.Contains(t, w.Body.String(), `<base href="/wedding/"/>`)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	w = request(host, http.MethodGet, "/wedding/gallery/ABC123/chapter/ceremony")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<div id="root">`)

	w = request(host, http.MethodGet, "/wedding/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(host, http.MethodGet, "/other/assets/app.js")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(host, http.MethodGet, "/wedding/images/hero")
	assert.Equal(t, http.StatusOK, w.Code, "directories fall back to the entry document")
	assert.Contains(t, w.Body.String(), `<div id="root">`)

	w = request(host, http.MethodPost, "/wedding/")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSpaHost_RootBase(t *testing.T) {
	host, err := NewSpaHost(SpaHostConfig{BasePath: "", FS: testFS()})
	require.NoError(t, err)

	w := request(host, http.MethodGet, "/favicon.svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<svg></svg>", w.Body.String())

	w = request(host, http.MethodGet, "/index.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `src="/assets/app.js"`)

	w = request(host, http.MethodGet, "/../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpaHost_ServerPathsDoNotFallBack(t *testing.T) {
	host, err := NewSpaHost(SpaHostConfig{BasePath: "/wedding/", FS: testFS()})
	require.NoError(t, err)

	for _, target := range []string{"/wedding/api/whatever", "/wedding/api", "/wedding/media/photos/p1/nope"} {
		w := request(host, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"), target)
		assert.NotContains(t, w.Body.String(), `<div id="root">`, target)
	}

	w := request(host, http.MethodGet, "/wedding/apiary")
	assert.Equal(t, http.StatusOK, w.Code, "only whole path segments are reserved")
}

func TestNewSpaHost_MissingEntryDocument(t *testing.T) {
	_, err := NewSpaHost(SpaHostConfig{BasePath: "/", FS: fstest.MapFS{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry document")
}
