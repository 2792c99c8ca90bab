package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/imagecache"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePhotoService struct {
	services.PhotoServicer
}

func (fakePhotoService) GetPhoto(photoID string) (*models.Photo, error) {
	switch photoID {
	case "p1":
		return &models.Photo{BaseModel: models.BaseModel{ID: "p1"}, GalleryID: "g1", StorageKey: "galleries/g1/originals/p1.jpg"}, nil
	case "broken":
		return &models.Photo{BaseModel: models.BaseModel{ID: "broken"}, GalleryID: "g1", StorageKey: "galleries/g1/originals/broken.jpg"}, nil
	}

	return nil, models.ErrPhotoNotFound
}

type fakeCache struct {
	imagecache.ImageCacher
	preloads []string
}

func (f *fakeCache) Preload(ctx context.Context, url string) (*imagecache.Image, error) {
	f.preloads = append(f.preloads, url)

	if strings.Contains(url, "broken") {
		return nil, errors.New("error loading image: corrupt")
	}

	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	return &imagecache.Image{URL: url, Image: img, Format: "png"}, nil
}

func newTestController(cache *fakeCache, allowed bool) MediaController {
	return NewMediaController(MediaControllerConfig{
		AccessChecker: func(r *http.Request, galleryID string) bool {
			return allowed && galleryID == "g1"
		},
		PhotoService:   fakePhotoService{},
		ThumbnailCache: cache,
		MediaURLs:      viewmodels.MediaURLs{BasePath: "/"},
	})
}

func get(controller MediaController, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/photos/{id}/thumbnail", controller.Thumbnail)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestThumbnail_ServesJPEGFromCache(t *testing.T) {
	cache := &fakeCache{}
	w := get(newTestController(cache, true), "/media/photos/p1/thumbnail")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []string{"galleries/g1/originals/p1.jpg"}, cache.preloads)

	decoded, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 40, decoded.Bounds().Dx())
	assert.Equal(t, 20, decoded.Bounds().Dy())
}

func TestThumbnail_Errors(t *testing.T) {
	cache := &fakeCache{}

	w := get(newTestController(cache, false), "/media/photos/p1/thumbnail")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, cache.preloads)

	w = get(newTestController(cache, true), "/media/photos/missing/thumbnail")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(newTestController(cache, true), "/media/photos/broken/thumbnail")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"isError":true`)
}

func TestSniffImageType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	reader := bytes.NewReader(buf.Bytes())
	contentType, err := SniffImageType(reader)

	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, int64(buf.Len()), int64(reader.Len()), "reader is rewound")

	_, err = SniffImageType(strings.NewReader("just some text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
