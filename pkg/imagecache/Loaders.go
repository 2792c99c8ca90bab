package imagecache

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/getoptions"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

/*
Image is the handle the cache stores for a URL.
*/
type Image struct {
	URL    string
	Image  image.Image
	Format string
}

func (i *Image) Width() int {
	return i.Image.Bounds().Dx()
}

func (i *Image) Height() int {
	return i.Image.Bounds().Dy()
}

type Loader interface {
	Load(ctx context.Context, url string) (*Image, error)
}

type LoaderFunc func(ctx context.Context, url string) (*Image, error)

func (f LoaderFunc) Load(ctx context.Context, url string) (*Image, error) {
	return f(ctx, url)
}

/*
HTTPLoader downloads and decodes images over HTTP. When BaseURL is set
the cache key is a path below it, such as an object key behind a CDN.
*/
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

func (l HTTPLoader) Load(ctx context.Context, url string) (*Image, error) {
	var (
		err      error
		request  *http.Request
		response *http.Response
	)

	client := l.Client

	if client == nil {
		client = http.DefaultClient
	}

	target := url

	if l.BaseURL != "" {
		target = strings.TrimSuffix(l.BaseURL, "/") + "/" + strings.TrimPrefix(url, "/")
	}

	if request, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil); err != nil {
		return nil, fmt.Errorf("error building request for '%s': %w", target, err)
	}

	if response, err = client.Do(request); err != nil {
		return nil, fmt.Errorf("error downloading image from '%s': %w", target, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading image from '%s', status: %s", target, response.Status)
	}

	return Decode(url, response.Body)
}

/*
S3Loader treats the cache key as an object key in Bucket.
*/
type S3Loader struct {
	S3Client s3.S3Client
	Bucket   string
}

func (l S3Loader) Load(ctx context.Context, key string) (*Image, error) {
	var (
		err    error
		object s3.GetObjectResponse
	)

	object, err = l.S3Client.Get(
		l.Bucket,
		key,
		getoptions.WithContext(ctx),
	)

	if err != nil {
		return nil, fmt.Errorf("error retrieving image %s: %w", key, err)
	}

	defer object.Body.Close()
	return Decode(key, object.Body)
}

/*
ThumbnailLoader loads through Source and scales the result so its longest
edge is MaxSize pixels.
*/
type ThumbnailLoader struct {
	Source  Loader
	MaxSize uint
}

func (l ThumbnailLoader) Load(ctx context.Context, url string) (*Image, error) {
	original, err := l.Source.Load(ctx, url)

	if err != nil {
		return nil, err
	}

	return &Image{
		URL:    url,
		Image:  Resize(original.Image, l.MaxSize),
		Format: original.Format,
	}, nil
}

func Decode(url string, r io.Reader) (*Image, error) {
	img, format, err := image.Decode(r)

	if err != nil {
		return nil, fmt.Errorf("error decoding image '%s': %w", url, err)
	}

	return &Image{
		URL:    url,
		Image:  img,
		Format: format,
	}, nil
}

/*
Resize scales img so its longest edge is maxSize. Images already within
bounds are returned unchanged.
*/
func Resize(img image.Image, maxSize uint) image.Image {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	if maxSize == 0 || (width <= maxSize && height <= maxSize) {
		return img
	}

	var newWidth, newHeight uint
	if width > height {
		// Landscape orientation
		newWidth = maxSize
		newHeight = uint(float64(height) * (float64(maxSize) / float64(width)))
	} else {
		// Portrait orientation or square
		newHeight = maxSize
		newWidth = uint(float64(width) * (float64(maxSize) / float64(height)))
	}

	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}
